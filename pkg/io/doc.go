// Package io serializes canvas selections for export and reads canvas
// snapshots back in.
//
// # Export
//
// [WriteExport] writes a selection of nodes plus the edges touching it in
// one of two formats:
//
//	json  {"exported_at": ..., "node_count": 2, "edge_count": 1, "nodes": [...], "edges": [...]}
//	csv   id,title,description,category,tags,owner,created_at,updated_at
//
// In CSV, tags are joined with ';' and timestamps use RFC 3339. Edges are
// not part of the CSV export.
//
// # Import
//
// [ReadJSON] accepts either a snapshot written by a store or a JSON export;
// both carry "nodes" and "edges" arrays. Nodes and edges are checked as
// they are added, so a dangling edge or duplicate ID fails the import with
// a message naming the offender.
package io
