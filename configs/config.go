package config

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
	"github.com/gofrs/uuid"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

const logFolder = ".l_g"

var InstanceId string

// LoadEnv loads ./.env into the environment. A missing file is fine when
// the variables come from the deployment.
func LoadEnv(service string) {
	log.Infof("%s service configuration and env variables loading started ...", service)
	if err := godotenv.Load("./.env"); err != nil {
		log.Warnf("no .env file loaded, using process environment: %v", err)
		return
	}

	log.Info(".env file loaded.")
}

func CreateUniqueInstance(service string) string {
	id, err := uuid.NewV4() // instance identifier
	if err != nil {
		log.Fatalf("error generating instanceId: %s", err)
	}
	InstanceId = id.String()
	log.Infof(service+" service with Instance ID: %s is ready", id)
	return InstanceId
}

func GetInstanceId() string {
	return InstanceId
}

func CORS(origins []string) *cors.Cors {
	return cors.New(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Player-ID"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	})
}

// Logging sends logrus output to .l_g/<service>.log.
func Logging(service string) {
	_, err := os.Stat(logFolder)
	if os.IsNotExist(err) {
		err = os.Mkdir(logFolder, 0755)
		if err != nil {
			log.Warnf("unable to create folder for log %s", err)
			return
		}
	}

	logFilePath := filepath.Join(logFolder, service+".log")

	file, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		log.Fatal("Failed to open log file:", err)
	}

	log.SetOutput(file)

	log.SetFormatter(&log.TextFormatter{})
	log.SetLevel(log.InfoLevel)

	log.Infof("log to file started for service: %s", service)
}

// SetLevel applies a LOG_LEVEL value, keeping the current level if it
// does not parse.
func SetLevel(level string) {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.Warnf("invalid LOG_LEVEL %q: %v", level, err)
		return
	}
	log.SetLevel(lvl)
}

func CustomLoggerMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				log.WithFields(log.Fields{
					"request_id": middleware.GetReqID(r.Context()),
					"remote":     r.RemoteAddr,
				}).Infof("%s %s %d %s %s",
					r.Method,
					r.RequestURI,
					ww.Status(),
					http.StatusText(ww.Status()),
					time.Since(start),
				)
			}()

			next.ServeHTTP(ww, r)
		})
	}
}
