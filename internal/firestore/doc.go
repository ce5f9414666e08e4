// Package firestore reads air-quality documents from Cloud Firestore over
// its REST API.
//
// Two calls are made per run: a document get for the current snapshot and
// a structured query (runQuery) for history documents newer than a cursor.
// Filtering, ordering and the page limit are all pushed to the server so a
// run reads only the documents it needs.
//
// Field values arrive in Firestore's tagged-union encoding
// ({"integerValue": "12"}, {"doubleValue": 8.5}, ...). They are decoded into
// the sealed Value type and then converted to reading fields.
//
// Authentication is a single API key appended to every request. Errors are
// reported as *RemoteError and never retried here.
package firestore
