// Package normalisers holds the local document extractors used when no
// extraction service is configured. Registry picks one per document by MIME
// type, then extension, then priority. Sub-packages implement the formats.
package normalisers
