// Package watcher reports normalized changes (create, remove, change, rename)
// for a set of files and directories.
//
// Native directory notifications are best effort. A periodic sweep detects
// directories that appeared, disappeared or were replaced and re-probes the
// paths inside them, so changes that happened while a directory could not be
// watched are still reported. Directory watching is one level deep.
package watcher
