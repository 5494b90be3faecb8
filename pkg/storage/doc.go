// Package storage manages the generated site directory.
//
// The Manager type resolves doc-relative paths, lists and removes creator
// directories and writes files atomically through a temporary file and a
// rename, so a half-written page or image never replaces a good one.
//
// Usage:
//
//	manager, err := storage.NewManager("docs")
//	if err != nil {
//	    return err
//	}
//	err = manager.WriteFile("users/521444/index.html", page)
package storage
