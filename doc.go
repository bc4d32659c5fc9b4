// The todo package contains a to-do list client that keeps each user's tasks in a MongoDB collection. Users log
// in anonymously or with an email and password; the session is kept in a local gokv store so that it survives
// restarts of the consumers, which at the time of writing are the acme user interface in cmd/todo and the
// command-line tool in cmd/todoctl.
//
// The List type caches the logged-in user's items. All lookup and search operations scan through the cached
// slice. Lists are small, so this is fine.
//
// Methods that modify the data, e.g., AddItem or ClearCheckedItems, make the remote call and, if it succeeds,
// refresh the cache before returning. Refresh replaces the whole cache with what the collection holds for the
// current user and then notifies the registered listeners, which is how user interfaces learn that they should
// redraw.
package todo // import "github.com/nicolagi/todo"
