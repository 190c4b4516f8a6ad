package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/gofrs/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/joho/godotenv"
)

var InstanceId string

// LoadEnv loads .env into the process environment. Missing .env is not
// fatal outside development — production deployments set the environment
// directly.
func LoadEnv() {
	if err := godotenv.Load("./.env"); err != nil {
		log.Info("no .env file found, relying on process environment")
		return
	}
	log.Info(".env file loaded")
}

func CreateUniqueInstance(service string) string {
	id, err := uuid.NewV4()
	if err != nil {
		log.Fatalf("error generating instanceId: %s", err)
	}
	InstanceId = id.String()
	log.Infof("%s instance %s is ready", service, InstanceId)
	return InstanceId
}

func GetInstanceId() string {
	return InstanceId
}

// CORS builds the chi CORS middleware from CORS_ORIGIN (comma separated).
// An empty CORS_ORIGIN falls back to localhost for local development.
func CORS() *cors.Cors {
	origins := []string{"http://localhost:5173"}
	if raw := os.Getenv("CORS_ORIGIN"); raw != "" {
		origins = strings.Split(raw, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
	}

	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}

// Logging points logrus at a per-service file under .l_g, matching the
// teacher's log layout.
func Logging(service string) {
	logFolder := ".l_g"

	if _, err := os.Stat(logFolder); os.IsNotExist(err) {
		if err := os.Mkdir(logFolder, 0755); err != nil {
			log.Warnf("unable to create log folder: %s", err)
			return
		}
	}

	logFilePath := filepath.Join(logFolder, service+".log")

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatalf("failed to open log file: %s", err)
	}

	log.SetOutput(file)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(InfoOrDebug())

	log.Infof("log to file started for service: %s", service)
}

func InfoOrDebug() log.Level {
	if strings.EqualFold(os.Getenv("NODE_ENV"), "development") {
		return log.DebugLevel
	}
	return log.InfoLevel
}

// BindAddr honors the NODE_ENV=production convention from spec §6: bind
// 0.0.0.0 in production, localhost otherwise.
func BindAddr(port string) string {
	if strings.EqualFold(os.Getenv("NODE_ENV"), "production") {
		return "0.0.0.0:" + port
	}
	return "127.0.0.1:" + port
}

func CustomLoggerMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.WithFields(log.Fields{
					"method":   r.Method,
					"path":     r.RequestURI,
					"remote":   r.RemoteAddr,
					"status":   ww.Status(),
					"duration": time.Since(start).String(),
				}).Info("http request")
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
