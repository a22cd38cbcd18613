package database

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements mirror the tables the web application owns. They are only
// executed for demo seeding and integration tests against an empty database.
var schemaStatements = []string{
	"CREATE TABLE IF NOT EXISTS `workspaces` (" +
		"`id` VARCHAR(64) PRIMARY KEY, `name` VARCHAR(255) NOT NULL, `slug` VARCHAR(255) NOT NULL UNIQUE," +
		"`timezone` VARCHAR(64), `isActive` BOOLEAN NOT NULL DEFAULT TRUE," +
		"`createdAt` DATETIME(3) NOT NULL, `updatedAt` DATETIME(3) NOT NULL, `deletedAt` DATETIME(3) NULL)",

	"CREATE TABLE IF NOT EXISTS `users` (" +
		"`id` VARCHAR(64) PRIMARY KEY, `email` VARCHAR(255) NOT NULL UNIQUE, `name` VARCHAR(255) NOT NULL," +
		"`firstName` VARCHAR(255), `lastName` VARCHAR(255), `password` VARCHAR(255)," +
		"`activeWorkspaceId` VARCHAR(64), `isActive` BOOLEAN NOT NULL DEFAULT TRUE," +
		"`createdAt` DATETIME(3) NOT NULL, `updatedAt` DATETIME(3) NOT NULL)",

	"CREATE TABLE IF NOT EXISTS `workspace_users` (" +
		"`id` VARCHAR(64) PRIMARY KEY, `workspaceId` VARCHAR(64) NOT NULL, `userId` VARCHAR(64) NOT NULL," +
		"`role` VARCHAR(32) NOT NULL, `isActive` BOOLEAN NOT NULL DEFAULT TRUE, `createdAt` DATETIME(3) NOT NULL," +
		"UNIQUE KEY `workspace_user` (`workspaceId`, `userId`))",

	"CREATE TABLE IF NOT EXISTS `companies` (" +
		"`id` VARCHAR(64) PRIMARY KEY, `workspaceId` VARCHAR(64) NOT NULL, `name` VARCHAR(255) NOT NULL," +
		"`website` VARCHAR(512), `domain` VARCHAR(255), `industry` VARCHAR(255), `size` VARCHAR(32)," +
		"`employeeCount` INT, `revenue` DOUBLE, `description` TEXT, `linkedinUrl` VARCHAR(512)," +
		"`city` VARCHAR(255), `state` VARCHAR(255), `country` VARCHAR(255), `status` VARCHAR(32)," +
		"`mainSellerId` VARCHAR(64), `tags` TEXT, `dataSources` TEXT, `lastVerified` DATETIME(3)," +
		"`createdAt` DATETIME(3) NOT NULL, `updatedAt` DATETIME(3) NOT NULL, `deletedAt` DATETIME(3) NULL," +
		"KEY `companies_workspace` (`workspaceId`), KEY `companies_domain` (`workspaceId`, `domain`))",

	"CREATE TABLE IF NOT EXISTS `people` (" +
		"`id` VARCHAR(64) PRIMARY KEY, `workspaceId` VARCHAR(64) NOT NULL, `companyId` VARCHAR(64)," +
		"`firstName` VARCHAR(255), `lastName` VARCHAR(255), `fullName` VARCHAR(512) NOT NULL," +
		"`jobTitle` VARCHAR(255), `department` VARCHAR(255), `seniority` VARCHAR(64)," +
		"`email` VARCHAR(255), `workEmail` VARCHAR(255), `personalEmail` VARCHAR(255)," +
		"`phone` VARCHAR(64), `mobilePhone` VARCHAR(64), `workPhone` VARCHAR(64), `linkedinUrl` VARCHAR(512)," +
		"`city` VARCHAR(255), `state` VARCHAR(255), `country` VARCHAR(255), `status` VARCHAR(32)," +
		"`source` VARCHAR(64), `mainSellerId` VARCHAR(64), `tags` TEXT, `notes` TEXT," +
		"`buyerGroupRole` VARCHAR(64), `isBuyerGroupMember` BOOLEAN NOT NULL DEFAULT FALSE," +
		"`influenceScore` DOUBLE, `decisionPower` INT, `flightRiskScore` DOUBLE," +
		"`enrichmentSources` TEXT, `enrichmentScore` DOUBLE, `emailConfidence` DOUBLE, `phoneConfidence` DOUBLE," +
		"`lastEnriched` DATETIME(3), `coresignalData` JSON," +
		"`createdAt` DATETIME(3) NOT NULL, `updatedAt` DATETIME(3) NOT NULL, `deletedAt` DATETIME(3) NULL," +
		"KEY `people_workspace` (`workspaceId`), KEY `people_company` (`companyId`), KEY `people_email` (`workspaceId`, `email`))",

	"CREATE TABLE IF NOT EXISTS `leads` (" + pipelineColumns + ")",
	"CREATE TABLE IF NOT EXISTS `prospects` (" + pipelineColumns + ")",

	"CREATE TABLE IF NOT EXISTS `opportunities` (" +
		"`id` VARCHAR(64) PRIMARY KEY, `workspaceId` VARCHAR(64) NOT NULL, `companyId` VARCHAR(64)," +
		"`personId` VARCHAR(64), `name` VARCHAR(255) NOT NULL, `amount` DOUBLE NOT NULL DEFAULT 0," +
		"`stage` VARCHAR(64) NOT NULL, `probability` INT NOT NULL DEFAULT 0, `expectedCloseDate` DATETIME(3)," +
		"`assignedUserId` VARCHAR(64)," +
		"`createdAt` DATETIME(3) NOT NULL, `updatedAt` DATETIME(3) NOT NULL, `deletedAt` DATETIME(3) NULL," +
		"KEY `opportunities_workspace` (`workspaceId`))",

	"CREATE TABLE IF NOT EXISTS `enrichment_jobs` (" +
		"`id` VARCHAR(64) PRIMARY KEY, `workspaceId` VARCHAR(64) NOT NULL, `recordType` VARCHAR(16) NOT NULL," +
		"`recordId` VARCHAR(64) NOT NULL, `status` VARCHAR(16) NOT NULL, `retryCount` INT NOT NULL DEFAULT 0," +
		"`errorMessage` TEXT, `createdAt` DATETIME(3) NOT NULL, `processedAt` DATETIME(3), `updatedAt` DATETIME(3) NOT NULL," +
		"KEY `enrichment_jobs_status` (`status`, `createdAt`))",
}

const pipelineColumns = "`id` VARCHAR(64) PRIMARY KEY, `workspaceId` VARCHAR(64) NOT NULL, `personId` VARCHAR(64)," +
	"`companyId` VARCHAR(64), `fullName` VARCHAR(512) NOT NULL, `email` VARCHAR(255), `company` VARCHAR(255)," +
	"`jobTitle` VARCHAR(255), `status` VARCHAR(32), `source` VARCHAR(64), `assignedUserId` VARCHAR(64)," +
	"`createdAt` DATETIME(3) NOT NULL, `updatedAt` DATETIME(3) NOT NULL, `deletedAt` DATETIME(3) NULL," +
	"KEY `workspace` (`workspaceId`)"

// EnsureSchema creates any missing CRM table.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
