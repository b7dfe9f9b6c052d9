// Package models defines core data structures for documents, pages, queries, and search results.
package models

import "time"

// Document is one corpus entry. Path is the only field that changes after creation.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Author    string    `json:"author" db:"author"`
	Path      string    `json:"path" db:"path"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Page is the extracted text of one physical page. Numbers start at 1.
type Page struct {
	DocumentID string `json:"document_id" db:"document_id"`
	Number     int    `json:"page_number" db:"page_number"`
	Content    string `json:"content" db:"content"`
}

// PathChange records a MOVED document.
type PathChange struct {
	ID      string `json:"id"`
	OldPath string `json:"old_path"`
	NewPath string `json:"new_path"`
}
