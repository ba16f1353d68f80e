package domain

// KeyPrefix namespaces every primary-store key owned by solrsync.
const KeyPrefix = "solrsync:"

// Solr field names every indexed document carries besides its unique key.
const (
	TypeField = "type_s"
	PKField   = "pk_s"
	IDField   = "id"
)
