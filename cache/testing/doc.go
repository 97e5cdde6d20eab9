// Package testing provides an in-memory cache.Store for tests of code that sits
// on top of the HTTP response cache.
//
// MockStore records every operation so tests can assert on cache traffic:
//
//	store := testing.NewMockStore()
//	client, _ := httpclient.NewBuilder(log).WithCacheStore(store).Build()
//	// ... perform requests ...
//	assert.Equal(t, int64(1), store.SetCalls())
package testing
