package routes

// Root returns the service index path.
func Root() string {
	return "/"
}

// Health returns the health probe path.
func Health() string {
	return "/health"
}

// Ingest returns the base path for upload endpoints (e.g., "/ingest").
func Ingest() string {
	return "/ingest"
}

// IngestCSV returns the CSV upload path (e.g., "/ingest/csv").
func IngestCSV() string {
	return Ingest() + "/csv"
}
