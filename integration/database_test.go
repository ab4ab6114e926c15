//go:build database

package integration

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestGeoseriesWithMySQL tests the geoseries CLI with a MySQL job backend.
func TestGeoseriesWithMySQL(t *testing.T) {
	ctx := context.Background()

	// Start MySQL container
	req := testcontainers.ContainerRequest{
		Image:        "mysql:8",
		ExposedPorts: []string{"3306:3306/tcp"},
		Env: map[string]string{
			"MYSQL_ROOT_PASSWORD": "secret123",
			"MYSQL_DATABASE":      "geoseries",
		},
		WaitingFor: wait.ForLog("port: 3306  MySQL Community Server").WithStartupTimeout(30 * time.Second),
	}
	mysqlC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = mysqlC.Terminate(ctx) }()

	// Get connection details
	host, err := mysqlC.Host(ctx)
	require.NoError(t, err)
	port, err := mysqlC.MappedPort(ctx, "3306")
	require.NoError(t, err)

	connStr := fmt.Sprintf("root:secret123@tcp(%s:%s)/geoseries?parseTime=true&multiStatements=true", host, port.Port())
	exerciseJobBackend(t, "mysql", connStr)
}

// TestGeoseriesWithPostgres tests the geoseries CLI with a PostgreSQL job backend.
func TestGeoseriesWithPostgres(t *testing.T) {
	ctx := context.Background()

	// Start Postgres container
	req := testcontainers.ContainerRequest{
		Image:        "postgres:18-alpine",
		ExposedPorts: []string{"5432:5432/tcp"},
		Env: map[string]string{
			"POSTGRES_HOST_AUTH_METHOD": "trust",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").WithStartupTimeout(30 * time.Second),
	}
	pgC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	defer func() { _ = pgC.Terminate(ctx) }()
	time.Sleep(5 * time.Second)

	// Get connection details
	host, err := pgC.Host(ctx)
	require.NoError(t, err)
	port, err := pgC.MappedPort(ctx, "5432")
	require.NoError(t, err)

	connStr := fmt.Sprintf("host=%s port=%s user=postgres dbname=postgres", host, port.Port())
	exerciseJobBackend(t, "postgresql", connStr)
}

// exerciseJobBackend clears history, runs a recipe and checks the recorded jobs.
func exerciseJobBackend(t *testing.T, backend, connStr string) {
	t.Setenv("GEOSERIES_JOB_BACKEND", backend)
	t.Setenv("GEOSERIES_JOB_DB_CONNECT", connStr)

	work := t.TempDir()
	catalog := writeCatalog(t, 3)

	_, err := runGeoseries(t, work, "jobs", "clear")
	require.NoError(t, err)

	_, err = runGeoseries(t, work, "jobs", "migrate")
	require.NoError(t, err)

	_, err = runGeoseries(t, work, "run", "precipitation",
		"--catalog", catalog, "--bbox", testBBox, "--end", "2023-07-04", "--out-dir", "exports")
	require.NoError(t, err)

	status, err := runGeoseries(t, work, "jobs", "status")
	require.NoError(t, err)
	assert.Contains(t, status, "Total Runs: 1")

	jobs, err := runGeoseries(t, work, "jobs", "list", "--output", "csv")
	require.NoError(t, err)
	assert.Contains(t, jobs, "Pr_2023-07-01")
	assert.Contains(t, jobs, "completed")
}
