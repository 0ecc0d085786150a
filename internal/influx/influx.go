package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/tellofleet/sim/internal/channel"
	"github.com/tellofleet/sim/internal/model"
	"github.com/tellofleet/sim/internal/queue"
)

// Buckets written by the simulator.
const (
	BucketTelemetry   = "fleet_telemetry"
	BucketPerformance = "fleet_performance"
)

// DefaultBucketNames are the InfluxDB buckets used by the simulator.
var DefaultBucketNames = []string{
	BucketTelemetry,
	BucketPerformance,
}

// backlogFlushAt bounds how many lines pile up before the backup file
// gets a write. backlogCap caps the spool when the file itself cannot
// be written; past it the oldest lines are dropped.
const (
	backlogFlushAt = 500
	backlogCap     = 10_000
)

// Envelope pairs a point with its destination bucket for the intake
// pipeline.
type Envelope struct {
	Bucket string
	Point  *influxdb2_write.Point
}

// Manager handles InfluxDB connections and writes. When the server is
// unreachable, points are spooled to a gzip backup file in line
// protocol instead.
type Manager struct {
	Client       influxdb2.Client
	Writers      map[string]influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	BucketNames  []string
	Logger       zerolog.Logger
	BackupPath   string

	backupFile *os.File
	backlog    *queue.Queue[string]
	intake     channel.Channel[Envelope]
}

// NewManager creates a new InfluxDB manager.
func NewManager(log zerolog.Logger, backupPath string) *Manager {
	return &Manager{
		Writers:     make(map[string]influxdb2_api.WriteAPI),
		IsValid:     false,
		BucketNames: DefaultBucketNames,
		Logger:      log,
		BackupPath:  backupPath,
		backlog:     queue.Bounded[string](backlogCap),
		intake:      channel.New[Envelope](1024),
	}
}

// Connect establishes a connection to InfluxDB.
func (m *Manager) Connect() error {
	if !viper.GetBool("influx.enabled") {
		return errors.New("influx.enabled is false")
	}

	m.Client = influxdb2.NewClientWithOptions(
		fmt.Sprintf(
			"%s://%s:%s",
			viper.GetString("influx.protocol"),
			viper.GetString("influx.host"),
			viper.GetString("influx.port"),
		),
		viper.GetString("influx.token"),
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	// validate client connection health
	running, err := m.Client.Ping(context.Background())

	if err != nil || !running {
		m.IsValid = false
		// create backup writer
		if m.BackupWriter == nil {
			m.Logger.Info().Str("backupPath", m.BackupPath).
				Msg("Failed to initialize InfluxDB client, writing to backup file")

			file, err := os.OpenFile(m.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
			if err != nil {
				return fmt.Errorf("error creating backup file: %v", err)
			}
			m.backupFile = file
			m.BackupWriter = gzip.NewWriter(file)
		}
	} else {
		m.IsValid = true
	}

	if m.IsValid {
		err = m.setupOrganizationAndBuckets()
		if err != nil {
			return err
		}
		m.CreateWriters()
		m.Logger.Info().Msg("InfluxDB client initialized")
	} else {
		m.Logger.Warn().Msg("InfluxDB client failed to initialize, using backup writer")
	}

	return nil
}

func (m *Manager) setupOrganizationAndBuckets() error {
	ctx := context.Background()
	orgName := viper.GetString("influx.org")

	// ensure org exists
	_, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Info().Str("org", orgName).Msg("Organization not found, creating")
		_, err = m.Client.OrganizationsAPI().CreateOrganizationWithName(ctx, orgName)
		if err != nil {
			m.Logger.Error().Err(err).Str("org", orgName).Msg("Error creating organization")
			return err
		}
	}

	// get influxOrg
	influxOrg, err := m.Client.OrganizationsAPI().FindOrganizationByName(ctx, orgName)
	if err != nil {
		m.Logger.Error().Err(err).Str("org", orgName).Msg("Error getting organization")
		return err
	}

	// ensure buckets exist with 90 day retention
	for _, bucket := range m.BucketNames {
		_, err = m.Client.BucketsAPI().FindBucketByName(ctx, bucket)
		if err != nil {
			m.Logger.Info().Str("bucket", bucket).Msg("Bucket not found, creating")

			rule := domain.RetentionRuleTypeExpire
			_, err = m.Client.BucketsAPI().CreateBucketWithName(ctx, influxOrg, bucket, domain.RetentionRule{
				Type:         &rule,
				EverySeconds: 60 * 60 * 24 * 90, // 90 days
			})
			if err != nil {
				m.Logger.Error().Err(err).Str("bucket", bucket).Msg("Error creating bucket")
				return err
			}
		}
	}

	return nil
}

// CreateWriters creates write APIs for all configured buckets.
func (m *Manager) CreateWriters() {
	orgName := viper.GetString("influx.org")
	for _, bucket := range m.BucketNames {
		m.Logger.Trace().Str("bucket", bucket).Msg("Creating InfluxDB writer")
		m.Writers[bucket] = m.Client.WriteAPI(orgName, bucket)

		errorsCh := m.Writers[bucket].Errors()
		go func(bucketName string, errorsCh <-chan error) {
			for writeErr := range errorsCh {
				m.Logger.Error().Err(writeErr).Str("bucket", bucketName).
					Msg("Error sending data to InfluxDB")
			}
		}(bucket, errorsCh)

		m.Logger.Trace().Str("bucket", bucket).Msg("InfluxDB writer created")
	}

	m.Logger.Debug().Msg("InfluxDB writers initialized")
}

// WritePoint writes a point to InfluxDB or spools it for the backup
// file.
func (m *Manager) WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error {
	if m.IsValid {
		if _, ok := m.Writers[bucket]; !ok {
			return fmt.Errorf("influxDB bucket '%s' not registered", bucket)
		}
		m.Writers[bucket].WritePoint(point)
		return nil
	}

	if m.BackupWriter == nil {
		return fmt.Errorf("influxDB client not initialized and backup writer not available")
	}

	m.backlog.Push(influxdb2_write.PointToLineProtocol(point, time.Nanosecond))
	if m.backlog.Len() >= backlogFlushAt {
		return m.flushBacklog()
	}
	return nil
}

// flushBacklog drains the spooled lines into the gzip backup file.
func (m *Manager) flushBacklog() error {
	lines := m.backlog.Drain()
	for _, line := range lines {
		if _, err := m.BackupWriter.Write([]byte(line)); err != nil {
			return fmt.Errorf("error writing to InfluxDB backup file: %s", err)
		}
	}
	return nil
}

// Sender exposes the intake pipeline. Producers pair each point with
// its bucket; Run delivers them.
func (m *Manager) Sender() channel.Sender[Envelope] {
	return m.intake
}

// Run consumes the intake pipeline until ctx is cancelled, then flushes
// whatever is spooled.
func (m *Manager) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			if err := m.flushBacklog(); err != nil {
				m.Logger.Error().Err(err).Msg("Error flushing backup backlog")
			}
			return
		case env := <-m.intake.Receive():
			if err := m.WritePoint(ctx, env.Bucket, env.Point); err != nil {
				m.Logger.Error().Err(err).Str("bucket", env.Bucket).
					Msg("Error writing point")
			}
		}
	}
}

// Close flushes pending writes and releases the client and backup file.
func (m *Manager) Close() error {
	if m.IsValid {
		for _, w := range m.Writers {
			w.Flush()
		}
		m.Client.Close()
	}
	if m.BackupWriter != nil {
		if err := m.flushBacklog(); err != nil {
			return err
		}
		if err := m.BackupWriter.Close(); err != nil {
			return fmt.Errorf("error closing backup writer: %v", err)
		}
		if err := m.backupFile.Close(); err != nil {
			return fmt.Errorf("error closing backup file: %v", err)
		}
	}
	return nil
}

// SnapshotPoint converts a device snapshot into a telemetry point.
func SnapshotPoint(s model.Snapshot) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"device_state",
		map[string]string{
			"device": s.ID,
			"mode":   s.Mode.String(),
		},
		map[string]any{
			"battery":     s.Battery,
			"x":           s.Position.X,
			"y":           s.Position.Y,
			"z":           s.Position.Z,
			"speed":       s.Speed,
			"flight_time": s.FlightTime,
			"temperature": s.Temperature,
			"near_miss":   s.Near,
			"latitude":    s.Geo.Latitude,
			"longitude":   s.Geo.Longitude,
		},
		s.Captured,
	)
}

// PerfStats is one sample of process health for the performance bucket.
type PerfStats struct {
	Devices         int
	Goroutines      int
	HeapAllocMB     float64
	CommandsHandled int
	StatesPushed    int
	StatesSent      int
	PushDuration    time.Duration
}

// PerfPoint converts a health sample into a performance point.
func PerfPoint(s PerfStats, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"sim_status",
		map[string]string{"service": "tellosim"},
		map[string]any{
			"devices":          s.Devices,
			"goroutines":       s.Goroutines,
			"heap_alloc_mb":    s.HeapAllocMB,
			"commands_handled": s.CommandsHandled,
			"states_pushed":    s.StatesPushed,
			"states_sent":      s.StatesSent,
			"push_ms":          s.PushDuration.Seconds() * 1000,
		},
		at,
	)
}
