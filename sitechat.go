// Package sitechat provides the core of a website question-answering
// assistant. It crawls a site, splits extracted page text into overlapping
// chunks, indexes their embeddings, and answers questions by retrieving the
// most similar chunks and grounding a language model on them.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, gemini/) or after the
// workflow they coordinate (crawl/, ingest/, chat/).
package sitechat
