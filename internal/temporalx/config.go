package temporalx

import (
	"os"
	"strings"

	"github.com/Synap-core/backend-sub006/internal/platform/envutil"
)

type Config struct {
	Address   string
	Namespace string
	TaskQueue string
}

func LoadConfig() Config {
	return Config{
		Address:   strings.TrimSpace(os.Getenv("TEMPORAL_ADDRESS")),
		Namespace: envutil.String("TEMPORAL_NAMESPACE", "datapod"),
		TaskQueue: envutil.String("TEMPORAL_TASK_QUEUE", "datapod"),
	}
}
