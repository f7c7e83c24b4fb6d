// Package misslog records requests that ended on the fallback not-found page
// so site editors can find broken links and add redirects for them.
//
// LogMiss is fire-and-forget. Entries go onto a bounded queue; a background
// worker writes them in batches once Threshold entries have accumulated, when
// the flush interval elapses, and on Close. A full queue drops the entry and
// reports it to the Observer instead of blocking the request.
//
//	store, _ := storage.NewSQLiteStorage(storage.DefaultSQLiteConfig())
//	l := misslog.NewLogger(store, misslog.DefaultLoggerConfig(), nil, nil)
//	defer l.Close()
//	l.LogMiss(ctx, "/old/page", "/blog")
package misslog
