// Package templates holds the admin views. Components live in .templ files
// next to their view models and the *_templ.go files are generated from them.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate -path .
