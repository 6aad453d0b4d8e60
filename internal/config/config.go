package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port     int
	Password string

	UDPAddress    string
	UDPPort       int
	UDPReadBuffer int // Socket receive buffer in bytes (0 = OS default)
	DatagramQueue int // Datagrams buffered between the socket reader and the assembler

	FrameWidth  int
	FrameHeight int
	SensorName  string

	ModelPath           string
	DetectionEnabled    bool
	DetectorInputSize   int // Square input geometry expected by the detector
	ConfidenceThreshold float64
	NMSScoreThreshold   float64
	NMSIoUThreshold     float64
	BoxScale            int // Detector space -> display space

	CaptureDirectory       string
	RecordFPS              int
	RecordFormat           string
	DatabasePath           string
	LogDirectory           string
	FPSInterval            time.Duration
	DetectionBufferLimit   int
	DetectionFlushInterval time.Duration
}

// Load reads the configuration from the environment. A .env file in the working
// directory is applied first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	captureDir := getEnv("CAPTURE_DIR", filepath.Join(".", "captures"))

	return &Config{
		Port:                   getEnvAsInt("PORT", 8080),
		Password:               getEnv("PASSWORD", "sensorlink"),
		UDPAddress:             getEnv("UDP_ADDRESS", "0.0.0.0"),
		UDPPort:                getEnvAsInt("UDP_PORT", 8080),
		UDPReadBuffer:          getEnvAsInt("UDP_READ_BUFFER", 4<<20),
		DatagramQueue:          getEnvAsInt("DATAGRAM_QUEUE", 4096),
		FrameWidth:             getEnvAsInt("FRAME_WIDTH", 400),
		FrameHeight:            getEnvAsInt("FRAME_HEIGHT", 400),
		SensorName:             getEnv("SENSOR_NAME", "sensor"),
		ModelPath:              getEnv("MODEL_PATH", filepath.Join(".", "models", "yolov8n_416.onnx")),
		DetectionEnabled:       getEnvAsBool("DETECTION_ENABLED", true),
		DetectorInputSize:      getEnvAsInt("DETECTOR_INPUT", 416),
		ConfidenceThreshold:    getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.85),
		NMSScoreThreshold:      getEnvAsFloat("NMS_SCORE_THRESHOLD", 0.3),
		NMSIoUThreshold:        getEnvAsFloat("NMS_IOU_THRESHOLD", 0.5),
		BoxScale:               getEnvAsInt("BOX_SCALE", 2),
		CaptureDirectory:       captureDir,
		RecordFPS:              getEnvAsInt("RECORD_FPS", 30),
		RecordFormat:           getEnv("RECORD_FORMAT", "mp4"),
		DatabasePath:           getEnv("DATABASE_PATH", filepath.Join(".", "data", "captures.db")),
		LogDirectory:           getEnv("LOG_DIR", filepath.Join(".", "logs")),
		FPSInterval:            getEnvAsDuration("FPS_INTERVAL", time.Second),
		DetectionBufferLimit:   getEnvAsInt("DETECTION_BUFFER_LIMIT", 10),
		DetectionFlushInterval: getEnvAsDuration("DETECTION_FLUSH_INTERVAL", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go duration strings ("500ms") or plain seconds ("30").
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil && d > 0 {
		return d
	}
	if seconds, err := strconv.Atoi(value); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
