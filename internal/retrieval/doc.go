// Package retrieval supplies background snippets for analysis prompts.
//
// Two retrievers are provided. KeywordRetriever does case-insensitive
// substring matching over a fixed document list. VectorRetriever embeds
// the query with a hashing embedder and ranks ingested chunks by L2
// distance over an in-memory VectorStore, which can be persisted to a
// bbolt index file between runs.
package retrieval
