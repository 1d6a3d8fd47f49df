package kafka_config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " broker-1:9092, ,broker-2:9092 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(cfg.Brokers) != 2 || cfg.Brokers[0] != "broker-1:9092" || cfg.Brokers[1] != "broker-2:9092" {
		t.Errorf("Brokers = %v", cfg.Brokers)
	}
	if cfg.NotificationsTopic != DefaultNotificationsTopic {
		t.Errorf("NotificationsTopic = %q", cfg.NotificationsTopic)
	}
	if cfg.NotifierGroupID != DefaultNotifierGroupID {
		t.Errorf("NotifierGroupID = %q", cfg.NotifierGroupID)
	}
}

func TestLoad_TopicOverrides(t *testing.T) {
	t.Setenv(EnvKafkaNotificationsTopic, "rooms.notifications")
	t.Setenv(EnvKafkaNotificationsDLQTopic, "rooms.notifications.dlq")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.NotificationsTopic != "rooms.notifications" || cfg.NotificationsDLQTopic != "rooms.notifications.dlq" {
		t.Errorf("topics = %q, %q", cfg.NotificationsTopic, cfg.NotificationsDLQTopic)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no dlq is allowed", mutate: func(c *Config) { c.NotificationsDLQTopic = "" }},
		{name: "missing topic", mutate: func(c *Config) { c.NotificationsTopic = "" }, wantErr: "NotificationsTopic"},
		{name: "dlq equals topic", mutate: func(c *Config) { c.NotificationsDLQTopic = c.NotificationsTopic }, wantErr: "NotificationsDLQTopic"},
		{name: "missing group", mutate: func(c *Config) { c.NotifierGroupID = "" }, wantErr: "NotifierGroupID"},
		{name: "bad compression", mutate: func(c *Config) { c.ProducerCompression = "brotli" }, wantErr: "ProducerCompression"},
		{name: "bad acks", mutate: func(c *Config) { c.ProducerRequireAcks = 2 }, wantErr: "ProducerRequireAcks"},
		{name: "bad offset", mutate: func(c *Config) { c.ConsumerStartOffset = 5 }, wantErr: "ConsumerStartOffset"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() error = %v, want mention of %s", err, tt.wantErr)
			}
		})
	}
}
