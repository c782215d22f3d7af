package badger

import "fmt"

// Key prefixes for different data types
const (
	searchDocPrefix     = "seadoc"
	searchItemPrefix    = "seaitm"
	vectorRecordPrefix  = "vecrec"
	vectorItemPrefix    = "vecitm"
	sectionDocPrefix    = "secdoc"
	blobPrefix          = "blob"
	checkpointPrefix    = "chkpt"
	ledgerPrefix        = "ledger"
)

var pingKey = []byte("ping:probe")

// makeSearchDocKey generates a key for a search document by document ID.
func makeSearchDocKey(docID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", searchDocPrefix, docID))
}

// makeSearchItemKey generates an index key from item ID to document ID.
func makeSearchItemKey(itemID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", searchItemPrefix, itemID))
}

// makeVectorKey generates a key for a vector record by record ID.
func makeVectorKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", vectorRecordPrefix, id))
}

// makeVectorItemKey generates a composite index key for scoped deletion.
// Format: prefix:itemID:recordID
func makeVectorItemKey(itemID, id string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", vectorItemPrefix, itemID, id))
}

// makeVectorItemPrefix generates the index prefix covering one item's vectors.
func makeVectorItemPrefix(itemID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", vectorItemPrefix, itemID))
}

// makeSectionDocKey generates a key for a section document.
// Format: prefix:itemID/sectionName
func makeSectionDocKey(key string) []byte {
	return []byte(fmt.Sprintf("%s:%s", sectionDocPrefix, key))
}

// makeSectionItemPrefix generates the prefix covering one item's sections.
func makeSectionItemPrefix(itemID string) []byte {
	return []byte(fmt.Sprintf("%s:%s/", sectionDocPrefix, itemID))
}

// makeBlobKey generates a key for a blob by path.
func makeBlobKey(path string) []byte {
	return []byte(fmt.Sprintf("%s:%s", blobPrefix, path))
}

// makeCheckpointKey generates a key for a transaction checkpoint.
func makeCheckpointKey(itemID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", checkpointPrefix, itemID))
}

// makeLedgerKey generates a key for an item's last-ingested content hash.
func makeLedgerKey(itemID string) []byte {
	return []byte(fmt.Sprintf("%s:%s", ledgerPrefix, itemID))
}
