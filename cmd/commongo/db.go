package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/zosbridge/commongo/pkg/manager"
)

// dbCmd represents the db command
var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database operations",
	Long:  "Commands for running queries and statements against the configured database.",
}

func init() {
	dbCmd.AddCommand(dbQueryCmd)
	dbCmd.AddCommand(dbUpdateCmd)
	dbCmd.AddCommand(dbTableInfoCmd)
	dbCmd.AddCommand(dbInfoCmd)
	dbCmd.AddCommand(dbPingCmd)
}

// withDatabase creates and connects a database manager, runs fn, and always
// disconnects.
func withDatabase(fn func(ctx context.Context, db manager.DatabaseManager) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	log := newLogger()
	db, err := manager.CreateDatabaseManager(cfg.Database, log)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if err := db.Connect(ctx); err != nil {
		return err
	}
	defer db.Disconnect(ctx)

	return fn(ctx, db)
}

func printRows(rows []manager.ResultRow) error {
	out := make([]map[string]interface{}, len(rows))
	for i, row := range rows {
		out[i] = row.Values
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// dbQueryCmd represents the query command
var dbQueryCmd = &cobra.Command{
	Use:   "query [sql]",
	Short: "Run a query",
	Long:  `Execute a SELECT statement and print the result rows as JSON.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(ctx context.Context, db manager.DatabaseManager) error {
			rows, err := db.ExecuteQuery(ctx, args[0])
			if err != nil {
				return err
			}
			return printRows(rows)
		})
	},
}

// dbUpdateCmd represents the update command
var dbUpdateCmd = &cobra.Command{
	Use:   "update [sql]",
	Short: "Run a DML statement",
	Long:  `Execute an INSERT, UPDATE, or DELETE statement and print the affected row count.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(ctx context.Context, db manager.DatabaseManager) error {
			affected, err := db.ExecuteUpdate(ctx, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%d row(s) affected\n", affected)
			return nil
		})
	},
}

// dbTableInfoCmd represents the table-info command
var dbTableInfoCmd = &cobra.Command{
	Use:   "table-info [table]",
	Short: "Show table structure",
	Long:  `Display the column definitions of a table from the system catalog.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(ctx context.Context, db manager.DatabaseManager) error {
			rows, err := db.GetTableInfo(ctx, args[0])
			if err != nil {
				return err
			}
			return printRows(rows)
		})
	},
}

// dbInfoCmd represents the info command
var dbInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show database instance information",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(ctx context.Context, db manager.DatabaseManager) error {
			row, err := db.GetResourceInfo(ctx)
			if err != nil {
				return err
			}
			return printRows([]manager.ResultRow{row})
		})
	},
}

// dbPingCmd represents the ping command
var dbPingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Test database connectivity",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDatabase(func(ctx context.Context, db manager.DatabaseManager) error {
			if !db.TestConnection(ctx) {
				return fmt.Errorf("database connection test failed")
			}
			fmt.Println("OK")
			return nil
		})
	},
}
