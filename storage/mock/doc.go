// Package mock provides in-memory test doubles for the storage backend
// interfaces.
//
// Each mock keeps its records in mutex-guarded maps and implements the
// corresponding storage interface faithfully, including the not-found and
// absent-is-ok semantics the real backends have. Behavior can be overridden
// per method via function fields, which is how tests inject failures at
// precise points of the transaction protocol:
//
//	search := mock.NewSearchIndex()
//	search.WriteDocumentFunc = func(ctx context.Context, doc *core.SearchDocument) (string, error) {
//	    return "", errors.New("search index unavailable")
//	}
//
// The mocks are safe for concurrent use so coordinator and supervisor tests
// can exercise parallel transactions against shared backends.
package mock
