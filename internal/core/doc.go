// Package core provides the business logic behind the solicitudes dashboard.
//
// This package holds all domain logic independent of any UI or transport
// layer. It is used by the web handlers, the CLI and tests without
// modification.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - View Definitions: Registered via the registry, each view has field
//     specs, search fields, a default sort and the SQL the Postgres source runs.
//   - Sources: Where records come from (Postgres, the backend HTTP API, or
//     static records for tests and the CLI).
//   - Snapshots: Per-view cached record sets with a TTL, served stale when
//     the backend is down.
//   - Service: The main entry point for all operations (query, export,
//     schedule, analytics).
//
// # View Registry
//
// Views are registered at init time using [Register]:
//
//	core.Register(ViewDefinition{
//	    Info: ViewInfo{Key: "solicitudes", Group: "Monitoreo", Label: "Solicitudes"},
//	    FieldSpecs: []FieldSpec{
//	        {Name: "nombre_descriptivo", Label: "Nombre", Type: FieldText},
//	        {Name: "ultima_ejecucion", Label: "Última ejecución", Type: FieldDate},
//	    },
//	    Query: "SELECT ... FROM solicitudes",
//	})
//
// # Query Flow
//
// Every table request runs the same pipeline over an in-memory snapshot:
//
//  1. [Service.GetTableData] resolves the view and loads its snapshot
//  2. The free-text search keeps rows matching any search field
//  3. Column filters from [BuildFilters] narrow the rows further
//  4. Rows are sorted by the requested column, or the view default
//  5. The page is clamped and sliced; numeric columns are aggregated
//
// [Service.ExportTable] runs steps 1-4 and writes CSV instead of paging.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - QRY001-QRY002: Query errors (parameters, filter values)
//   - TBL001-TBL002: View errors (unknown, not configured)
//   - SRC001-SRC002: Source errors (unavailable, malformed)
//   - DB004-DB006, REQ001-REQ002, RATE001: Infrastructure errors
package core
