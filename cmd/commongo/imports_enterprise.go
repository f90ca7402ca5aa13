//go:build enterprise
// +build enterprise

package main

// Enterprise builds additionally register the native library backends.
import (
	_ "github.com/zosbridge/commongo/internal/database/db2native"
	_ "github.com/zosbridge/commongo/internal/messaging/mqnative"
)
