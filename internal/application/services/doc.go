// Package services holds the operational jobs run against the CRM database:
//   - duplicate merging and fake-record removal (CleanupService)
//   - field backfills and ownership transfer (MigrationService)
//   - record counts, consistency checks and guarded ad hoc queries (DiagnosticsService)
//   - third-party enrichment, the enrichment job queue and its scheduler (EnrichmentService)
//   - buyer group discovery (BuyerGroupService)
//   - spreadsheet imports (ImportService), demo data (DemoSeeder) and operator accounts (UserService)
//
// Every job that writes is a dry run unless its options ask to apply, and
// applied writes for one unit of work share a transaction.
package services
