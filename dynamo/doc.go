// Package dynamo implements the loam query-builder contract over DynamoDB.
//
// A [Connection] wraps a DynamoDB client plus naming configuration and
// produces [Builder] values satisfying entity.Builder. Collections map to
// tables (optionally prefixed), documents map to items through the
// attributevalue codec, and the identity field maps to a single-attribute
// partition key.
//
// Query execution favors key fast paths: a single equality constraint on
// the identity attribute becomes a GetItem, everything else becomes a
// paginated Scan with a generated filter expression. Save is a PutItem
// with upsert-by-identity semantics; documents without an identity get a
// generated UUID which is returned to the caller. Update and Delete
// resolve the matching identities first, then issue per-item UpdateItem
// and DeleteItem calls.
//
// Install a [Resolver] as the process-wide connection resolver:
//
//	conn := dynamo.New(client, dynamo.DefaultConfig())
//	entity.SetResolver(dynamo.NewResolver(conn))
package dynamo
