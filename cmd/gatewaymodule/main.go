// Gateway Module Core - example host application
//
// This host loads the subdevices described in config.yaml, proxies them onto
// the gateway's MQTT bus, and feeds simulated sensor readings until it is
// stopped. It demonstrates the full builder wiring: actuation, configuration,
// status, firmware, optional sqlite persistence, and the optional InfluxDB
// reading-history mirror.
package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	gatewaymodule "github.com/nerrad567/gateway-module-core"
	"github.com/nerrad567/gateway-module-core/internal/history"
	"github.com/nerrad567/gateway-module-core/internal/infrastructure/config"
	"github.com/nerrad567/gateway-module-core/internal/infrastructure/logging"
	"github.com/nerrad567/gateway-module-core/model"
	"github.com/nerrad567/gateway-module-core/persistence"
	"github.com/nerrad567/gateway-module-core/persistence/sqlite"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

// readingInterval is the pace of the simulated sensor feed.
const readingInterval = 5 * time.Second

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//
// Returns:
//   - error: nil on clean shutdown, or error describing failure
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting gateway module host",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)

	// Select the persistence backend
	var store persistence.Store
	if cfg.Persistence.Backend == "sqlite" {
		sqliteStore, openErr := sqlite.Open(cfg.Persistence.Path)
		if openErr != nil {
			return fmt.Errorf("opening persistence store: %w", openErr)
		}
		defer func() {
			if closeErr := sqliteStore.Close(); closeErr != nil {
				log.Error("closing persistence store", "error", closeErr)
			}
		}()
		store = sqliteStore
		log.Info("sqlite persistence enabled", "path", cfg.Persistence.Path)
	} else {
		store = persistence.NewInMemory()
	}

	host := newHostState(cfg.Devices, log)

	builder := gatewaymodule.NewBuilder(cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port).
		TLS(cfg.MQTT.Broker.TLS).
		Credentials(cfg.MQTT.Auth.Username, cfg.MQTT.Auth.Password).
		ClientID(cfg.MQTT.Broker.ClientID).
		QoS(cfg.MQTT.QoS).
		ActuationHandler(host.handleActuation).
		ActuatorStatusProvider(host.actuatorStatus).
		ConfigurationHandling(host.handleConfiguration, host.configuration).
		DeviceStatusProvider(host.deviceStatus).
		FirmwareHandling(&firmwareSimulator{log: log}, host.firmwareVersion).
		PlatformStatusListener(func(status model.PlatformStatus) {
			log.Info("platform connectivity changed", "status", string(status))
		}).
		Persistence(store).
		Logger(log)

	// Optional reading-history mirror
	if cfg.History.Enabled {
		recorder, connectErr := history.Connect(cfg.History)
		if connectErr != nil {
			return fmt.Errorf("connecting history mirror: %w", connectErr)
		}
		defer func() {
			if closeErr := recorder.Close(); closeErr != nil {
				log.Error("closing history mirror", "error", closeErr)
			}
		}()
		recorder.SetOnError(func(err error) {
			log.Error("history write error", "error", err)
		})
		builder.HistoryRecorder(recorder)
		log.Info("history mirror enabled", "url", cfg.History.URL, "bucket", cfg.History.Bucket)
	}

	module, err := builder.Build()
	if err != nil {
		return fmt.Errorf("building module: %w", err)
	}
	defer module.Close()

	for _, deviceCfg := range cfg.Devices {
		device := deviceFromConfig(deviceCfg)
		if addErr := module.AddDevice(device); addErr != nil {
			return fmt.Errorf("adding device %q: %w", device.Key, addErr)
		}
		log.Info("device added", "device", device.Key,
			"sensors", len(device.Template.Sensors),
			"actuators", len(device.Template.Actuators),
		)
	}

	module.Connect(true)
	log.Info("module connecting",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port))

	feedReadings(ctx, module, cfg.Devices, log)

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// feedReadings publishes one simulated reading per sensor every interval
// until the context is cancelled.
func feedReadings(ctx context.Context, module *gatewaymodule.Module, devices []config.DeviceConfig, log *logging.Logger) {
	ticker := time.NewTicker(readingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, device := range devices {
				for _, sensor := range device.Template.Sensors {
					value := sensor.Minimum + rand.Float64()*(sensor.Maximum-sensor.Minimum)
					if err := module.AddSensorReading(device.Key, sensor.Reference, value, 0); err != nil {
						log.Error("adding reading", "device", device.Key, "reference", sensor.Reference, "error", err)
					}
				}
			}
			module.Publish()
		}
	}
}

// getConfigPath returns the configuration file path.
// Uses GATEWAYMODULE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("GATEWAYMODULE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// deviceFromConfig converts a configured subdevice descriptor to the model
// form the module registers.
func deviceFromConfig(cfg config.DeviceConfig) model.Subdevice {
	template := model.DeviceTemplate{}
	for _, s := range cfg.Template.Sensors {
		template.Sensors = append(template.Sensors, model.SensorTemplate{
			Name:        s.Name,
			Reference:   s.Reference,
			ReadingType: s.ReadingType,
			Unit:        s.Unit,
			Description: s.Description,
			Minimum:     s.Minimum,
			Maximum:     s.Maximum,
		})
	}
	for _, a := range cfg.Template.Actuators {
		template.Actuators = append(template.Actuators, model.ActuatorTemplate{
			Name:        a.Name,
			Reference:   a.Reference,
			DataType:    model.DataType(a.DataType),
			Description: a.Description,
			Minimum:     a.Minimum,
			Maximum:     a.Maximum,
		})
	}
	for _, a := range cfg.Template.Alarms {
		template.Alarms = append(template.Alarms, model.AlarmTemplate{
			Name:        a.Name,
			Reference:   a.Reference,
			Description: a.Description,
		})
	}
	for _, c := range cfg.Template.Configurations {
		template.Configurations = append(template.Configurations, model.ConfigurationTemplate{
			Name:         c.Name,
			Reference:    c.Reference,
			DataType:     model.DataType(c.DataType),
			DefaultValue: c.DefaultValue,
			Labels:       c.Labels,
			Minimum:      c.Minimum,
			Maximum:      c.Maximum,
		})
	}

	return model.Subdevice{
		Name:     cfg.Name,
		Key:      cfg.Key,
		Template: template,
	}
}

// hostState holds the simulated device-side state the module callbacks read
// and write: actuator values, configuration items, firmware versions.
//
// Callbacks run on the module's command worker while the reading feed runs
// on the host goroutine, hence the mutex.
type hostState struct {
	mu sync.Mutex

	// actuators is keyed by "<deviceKey>/<reference>".
	actuators map[string]string

	// configurations is keyed by device key.
	configurations map[string][]model.ConfigurationItem

	// firmware is keyed by device key.
	firmware map[string]string

	log *logging.Logger
}

func newHostState(devices []config.DeviceConfig, log *logging.Logger) *hostState {
	h := &hostState{
		actuators:      make(map[string]string),
		configurations: make(map[string][]model.ConfigurationItem),
		firmware:       make(map[string]string),
		log:            log,
	}
	for _, device := range devices {
		for _, actuator := range device.Template.Actuators {
			h.actuators[device.Key+"/"+actuator.Reference] = "false"
		}
		var items []model.ConfigurationItem
		for _, c := range device.Template.Configurations {
			items = append(items, model.ConfigurationItem{
				Reference: c.Reference,
				Values:    []string{c.DefaultValue},
			})
		}
		h.configurations[device.Key] = items
		h.firmware[device.Key] = device.Firmware
	}
	return h
}

func (h *hostState) handleActuation(deviceKey, reference, value string) {
	h.mu.Lock()
	h.actuators[deviceKey+"/"+reference] = value
	h.mu.Unlock()
	h.log.Info("actuation applied", "device", deviceKey, "reference", reference, "value", value)
}

func (h *hostState) actuatorStatus(deviceKey, reference string) model.ActuatorStatus {
	h.mu.Lock()
	value := h.actuators[deviceKey+"/"+reference]
	h.mu.Unlock()
	return model.ActuatorStatus{
		Reference: reference,
		Value:     value,
		State:     model.ActuatorStateReady,
	}
}

func (h *hostState) handleConfiguration(deviceKey string, items []model.ConfigurationItem) {
	h.mu.Lock()
	current := h.configurations[deviceKey]
	for _, item := range items {
		replaced := false
		for i := range current {
			if current[i].Reference == item.Reference {
				current[i] = item
				replaced = true
				break
			}
		}
		if !replaced {
			current = append(current, item)
		}
	}
	h.configurations[deviceKey] = current
	h.mu.Unlock()
	h.log.Info("configuration applied", "device", deviceKey, "items", len(items))
}

func (h *hostState) configuration(deviceKey string) []model.ConfigurationItem {
	h.mu.Lock()
	defer h.mu.Unlock()
	items := make([]model.ConfigurationItem, len(h.configurations[deviceKey]))
	copy(items, h.configurations[deviceKey])
	return items
}

func (h *hostState) deviceStatus(string) model.DeviceStatus {
	return model.DeviceStatusConnected
}

func (h *hostState) firmwareVersion(deviceKey string) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.firmware[deviceKey]
}

// firmwareSimulator pretends to flash firmware: it reports success after a
// short delay. A real host would hand the file to its flashing tooling here.
type firmwareSimulator struct {
	log *logging.Logger

	mu      sync.Mutex
	aborted map[string]bool
}

func (f *firmwareSimulator) Install(deviceKey, fileName string, onSuccess func(), onFail func()) {
	f.log.Info("firmware installation started", "device", deviceKey, "file", fileName)
	f.mu.Lock()
	if f.aborted == nil {
		f.aborted = make(map[string]bool)
	}
	f.aborted[deviceKey] = false
	f.mu.Unlock()

	go func() {
		time.Sleep(2 * time.Second)
		f.mu.Lock()
		aborted := f.aborted[deviceKey]
		f.mu.Unlock()
		if aborted {
			return
		}
		onSuccess()
	}()
}

func (f *firmwareSimulator) Abort(deviceKey string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.aborted == nil {
		return false
	}
	if _, running := f.aborted[deviceKey]; !running {
		return false
	}
	f.aborted[deviceKey] = true
	f.log.Info("firmware installation aborted", "device", deviceKey)
	return true
}
