// Package migrations embeds the SQL schema of both services.
package migrations

import "embed"

// Identity holds the users schema owned by the identity service.
//
//go:embed identity/*.sql
var Identity embed.FS

// Tasks holds the tasks schema owned by the task service.
//
//go:embed tasks/*.sql
var Tasks embed.FS
