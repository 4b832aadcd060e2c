// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/stretchr/testify/require"
)

func TestConfig(t *testing.T) {
	cfg, err := FromFile(filepath.Join("testdata", "valid.yaml"))
	require.NoError(t, err)

	require.NotNil(t, cfg.Logger)
	require.Equal(t, "json", cfg.Logging.Format)
	require.Equal(t, ":8098", cfg.Http.BindAddress)

	require.NotNil(t, cfg.Database.MySQL)
	require.Equal(t, "sepagate", cfg.Database.MySQL.Database)

	require.Equal(t, "mandates", cfg.SEPA.MandateSequence)
	require.Equal(t, "MNDT", cfg.SEPA.MandatePrefix)
	require.Equal(t, 5, cfg.SEPA.MandatePadding)
	require.True(t, cfg.SEPA.Validation.Structural)

	require.NotNil(t, cfg.Pipeline.Stream)
	require.Equal(t, "mem://sepagate", cfg.Pipeline.Stream.InMem.URL)
	require.Equal(t, 0.5, cfg.Tracing.SampleRate)
}

func TestInvalidConfig(t *testing.T) {
	cfg, err := FromFile(filepath.Join("testdata", "invalid.yaml"))
	require.Error(t, err)
	require.Error(t, cfg.Validate())
}

func TestEmptyConfig(t *testing.T) {
	cfg, err := FromFile("")
	require.NoError(t, err)
	require.NotNil(t, cfg.Database.SQLite)
	require.Equal(t, "", cfg.SEPA.MandateSequence)
	require.Nil(t, cfg.Pipeline.Stream)
}

func TestReadConfig(t *testing.T) {
	conf := []byte(`logging:
  format: plain
sepa:
  validation:
    structural: false
pipeline:
  stream:
    kafka:
      brokers: ["localhost:9092"]
      topic: "sepa-messages"
`)
	cfg, err := Read(conf)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	require.False(t, cfg.SEPA.Validation.Structural)
	require.Equal(t, []string{"localhost:9092"}, cfg.Pipeline.Stream.Kafka.Brokers)
	require.Equal(t, "sepa-messages", cfg.Pipeline.Stream.Kafka.Topic)
}

func TestSchemaDirectory(t *testing.T) {
	cfg := Validation{SchemaDirectory: filepath.Join("testdata", "missing")}
	require.Error(t, cfg.Validate())

	cfg.SchemaDirectory = "testdata"
	require.NoError(t, cfg.Validate())

	cfg.SchemaDirectory = filepath.Join("testdata", "valid.yaml")
	require.Error(t, cfg.Validate())
}

func TestMySQL__Password(t *testing.T) {
	cfg := &MySQL{Password: "secret"}
	require.Equal(t, "secret", cfg.GetPassword())

	os.Setenv("MYSQL_PASSWORD", "other")
	defer os.Unsetenv("MYSQL_PASSWORD")
	require.Equal(t, "other", cfg.GetPassword())

	bs, err := json.Marshal(cfg)
	require.NoError(t, err)
	require.Contains(t, string(bs), `"password":"s****t"`)
}

func TestReadConfig__env(t *testing.T) {
	os.Setenv("SEPAGATE_HTTP_BINDADDRESS", ":7000")
	defer os.Unsetenv("SEPAGATE_HTTP_BINDADDRESS")

	cfg, err := Read([]byte(`http:
  bindAddress: ":8000"
`))
	require.NoError(t, err)
	require.Equal(t, ":7000", cfg.Http.BindAddress)
}

func TestReadConfig__unknownFormat(t *testing.T) {
	_, err := Read([]byte(`logging:
  format: xml
`))
	require.Error(t, err)
}

func TestLevelOption(t *testing.T) {
	var buf bytes.Buffer
	logger := level.NewFilter(log.NewLogfmtLogger(&buf), levelOption("warn"))

	level.Info(logger).Log("msg", "dropped")
	level.Error(logger).Log("msg", "kept")
	logger.Log("msg", "unleveled")

	require.NotContains(t, buf.String(), "dropped")
	require.Contains(t, buf.String(), "kept")
	require.Contains(t, buf.String(), "unleveled")
}

func TestTracing(t *testing.T) {
	require.NoError(t, Tracing{}.Validate())
	require.NoError(t, Tracing{Enabled: true, SampleRate: 1, AgentAddress: "jaeger:6831"}.Validate())
	require.Error(t, Tracing{SampleRate: 1.5}.Validate())
	require.Error(t, Tracing{AgentAddress: "jaeger"}.Validate())
}

func TestStreamPipeline(t *testing.T) {
	var cfg *StreamPipeline
	require.NoError(t, cfg.Validate())

	cfg = &StreamPipeline{InMem: &InMemPipeline{URL: "mem://sepagate"}}
	require.NoError(t, cfg.Validate())

	cfg.InMem.URL = "sepagate"
	require.Error(t, cfg.Validate())

	cfg.InMem.URL = "mem://sepagate"
	cfg.Kafka = &KafkaPipeline{Brokers: []string{"localhost:9092"}, Topic: "messages"}
	require.Error(t, cfg.Validate())

	cfg.InMem = nil
	require.NoError(t, cfg.Validate())
}
