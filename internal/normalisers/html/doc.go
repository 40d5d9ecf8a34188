// Package html provides a Normaliser implementation for HTML documents.
// Block elements become paragraphs; headings and table rows keep their
// layout role so downstream chunking can tell them apart.
package html
