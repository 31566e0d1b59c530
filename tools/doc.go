// Package tools defines the retrieval tool contracts and implementations.
//
// Includes:
//   - ToolDefinition: name, description, JSON input schema.
//   - GenerateSchema[T](): derive JSON Schema from Go structs.
//   - Registry: ordered catalogue, dispatch, provenance aggregation.
//   - Course tools: search_course_content, get_course_outline.
//   - Invariants: each execution overwrites the tool's last-sources record;
//     dispatch converts execution failures into FailureMarker text results.
package tools
