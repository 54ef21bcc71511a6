package globals

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Context keys
type ContextKey string

const UserIDKey ContextKey = "userId"

// Env is the process configuration, read from the environment after an
// optional .env file.
type Env struct {
	Port        string
	MongoURI    string
	MongoDB     string
	RedisAddr   string
	RedisPass   string
	JWTSecret   []byte
	UpstreamURL string
	Debug       bool
}

// Load reads .env if present and returns the environment. It reports whether
// a .env file was found.
func Load() (Env, bool) {
	found := godotenv.Load() == nil
	return FromLookup(os.LookupEnv), found
}

// FromLookup builds an Env from any lookup function, filling defaults.
func FromLookup(lookup func(string) (string, bool)) Env {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok && v != "" {
			return v
		}
		return def
	}
	port := get("PORT", ":8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	debug, _ := strconv.ParseBool(get("DEBUG", "false"))
	return Env{
		Port:        port,
		MongoURI:    get("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:     get("MONGO_DB", "vogue"),
		RedisAddr:   get("REDIS_ADDR", "localhost:6379"),
		RedisPass:   get("REDIS_PASSWORD", ""),
		JWTSecret:   []byte(get("JWT_SECRET", "your_secret_key")),
		UpstreamURL: get("UPSTREAM_URL", "http://localhost"+port),
		Debug:       debug,
	}
}
