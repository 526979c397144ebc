// Package stream publishes scaled accelerometer samples over MQTT.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/mklimuk/mma845x/accel"
)

// Client is the part of the MQTT client used for publishing.
type Client interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Source provides the samples.
type Source interface {
	ID() uuid.UUID
	ReadScaled(ctx context.Context) (accel.ScaledSample, error)
}

// Payload is one published sample. Accelerations are micro m/s².
type Payload struct {
	Session uuid.UUID `cbor:"1,keyasint"`
	Seq     uint64    `cbor:"2,keyasint"`
	Time    time.Time `cbor:"3,keyasint"`
	X       int64     `cbor:"4,keyasint"`
	Y       int64     `cbor:"5,keyasint"`
	Z       int64     `cbor:"6,keyasint"`
}

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create stream CBOR encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyEnforcedAPF,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create stream CBOR decoder mode: %v", err))
	}
}

func Encode(p Payload) ([]byte, error) {
	return encMode.Marshal(p)
}

func Decode(data []byte) (Payload, error) {
	var p Payload
	if err := decMode.Unmarshal(data, &p); err != nil {
		return Payload{}, fmt.Errorf("could not decode sample: %w", err)
	}
	return p, nil
}

type Options struct {
	Interval       time.Duration
	PublishTimeout time.Duration
	Retained       bool
	Logger         *slog.Logger
}

type Option func(*Options)

func WithInterval(d time.Duration) Option {
	return func(o *Options) {
		o.Interval = d
	}
}

func WithPublishTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.PublishTimeout = d
	}
}

func WithRetained() Option {
	return func(o *Options) {
		o.Retained = true
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

type Publisher struct {
	client Client
	topic  string
	source Source
	config Options
	seq    uint64
}

func NewPublisher(client Client, topic string, source Source, opts ...Option) *Publisher {
	config := Options{
		Interval:       100 * time.Millisecond,
		PublishTimeout: time.Second,
		Logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Publisher{client: client, topic: topic, source: source, config: config}
}

// Run publishes a sample every interval until ctx ends. Failed reads and publishes are
// logged and skipped.
func (p *Publisher) Run(ctx context.Context) error {
	log := p.config.Logger.With("topic", p.topic, "session", p.source.ID().String())
	log.Info("streaming samples", "interval", p.config.Interval)
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("streaming stopped", "published", p.seq)
			return nil
		case <-ticker.C:
			err := p.PublishOnce(ctx)
			if err != nil {
				log.Warn("sample not published", "error", err)
			}
		}
	}
}

// PublishOnce reads one sample and publishes it.
func (p *Publisher) PublishOnce(ctx context.Context) error {
	sample, err := p.source.ReadScaled(ctx)
	if err != nil {
		return fmt.Errorf("could not read sample: %w", err)
	}
	payload, err := Encode(Payload{
		Session: p.source.ID(),
		Seq:     p.seq,
		Time:    sample.Timestamp,
		X:       int64(sample.X),
		Y:       int64(sample.Y),
		Z:       int64(sample.Z),
	})
	if err != nil {
		return fmt.Errorf("could not encode sample: %w", err)
	}
	token := p.client.Publish(p.topic, 0, p.config.Retained, payload)
	if !token.WaitTimeout(p.config.PublishTimeout) {
		return fmt.Errorf("publish timed out after %s", p.config.PublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("could not publish sample: %w", err)
	}
	p.seq++
	return nil
}

// Connect opens a paho client connection to broker.
func Connect(broker, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectTimeout(5 * time.Second)
	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("could not connect to %s: %w", broker, token.Error())
	}
	return client, nil
}
