package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Supabase SupabaseConfig
	S3       S3Config
	Buckets  BucketConfig
	Upload   UploadConfig

	// StorageBackend selects the object store: "s3" or "supabase".
	StorageBackend string
	// ListingBackend selects the create-call target: "supabase" or "postgres".
	ListingBackend string

	CatalogPath string
	JournalPath string // empty disables the draft journal
	LogPath     string
	LogLevel    string
}

type SupabaseConfig struct {
	URL        string
	AnonKey    string
	ServiceKey string
	DBURL      string
}

type S3Config struct {
	Bucket          string
	Region          string
	Endpoint        string // optional: DO Spaces, R2, MinIO
	AccessKeyID     string
	SecretAccessKey string
}

// BucketConfig maps upload categories to bucket names.
type BucketConfig struct {
	Images    string
	Videos    string
	Documents string
}

type UploadConfig struct {
	// Concurrency bounds parallel uploads per orchestrator.
	// 0 means unbounded, matching the original behavior.
	Concurrency int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Supabase: SupabaseConfig{
			URL:        os.Getenv("SUPABASE_URL"),
			AnonKey:    os.Getenv("SUPABASE_ANON_KEY"),
			ServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
			DBURL:      os.Getenv("SUPABASE_DB_URL"),
		},
		S3: S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          getEnv("S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("S3_SECRET_ACCESS_KEY"),
		},
		Buckets: BucketConfig{
			Images:    getEnv("BUCKET_IMAGES", "property-images"),
			Videos:    getEnv("BUCKET_VIDEOS", "property-videos"),
			Documents: getEnv("BUCKET_DOCUMENTS", "property-documents"),
		},
		Upload: UploadConfig{
			Concurrency: getEnvInt("UPLOAD_CONCURRENCY", 0),
		},
		StorageBackend: getEnv("STORAGE_BACKEND", "supabase"),
		ListingBackend: getEnv("LISTING_BACKEND", "supabase"),
		CatalogPath:    os.Getenv("CATALOG_PATH"),
		JournalPath:    os.Getenv("JOURNAL_PATH"),
		LogPath:        getEnv("LOG_PATH", "listflow.log"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}
