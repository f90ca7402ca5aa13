package main

// Blank imports register the command-line backends with the factory.
import (
	_ "github.com/zosbridge/commongo/internal/database/db2cli"
	_ "github.com/zosbridge/commongo/internal/messaging/mqcli"
)
