// The todo program is an acme user interface to a to-do list kept in MongoDB.
//
// The configuration is read from lib/todo/config.yaml within the user's home directory (see todo.ReadConfig);
// it may contain credentials, so it must not be readable by others.
//
// When launched, it creates a window listing the items of the logged-in user, or a login window if nobody is
// logged in. In the login window, fill in email and password and middle-click Login or Register, or just
// middle-click Anon to get an anonymous account. Operation of the other windows via middle-click and right-click
// should be fairly intuitive to an acme user so I mostly won't document it.
//
// In the items window each line reads "id [x] task". Edit the marks and the tasks, then Put. Be careful with
// Clear and ClearAll as they delete items for good.
//
// Example arguments to Search: All items containing "milk":  milk.  All checked items:  @done.  All unchecked
// items containing "bug":  @todo:bug.  All items done since the first of October:  >2026-10-01.
//
// So, in summary, prepending minus negates a condition; the colon combines conditions (i.e., represents the
// boolean AND); @done and @todo select checked and unchecked items; the > symbol introduces a date (or date and
// time in RFC 3339 format) items must have been done since, while the default condition looks for substring in
// tasks.
package main // import "github.com/nicolagi/todo/cmd/todo"
