package config

import "time"

type Config struct {
	GracefulDuration time.Duration
	Server           Server
	Metrics          Metrics
	Logs             Logs
	Routing          []Route
	Store            Store
	FailureArchive   S3
}

type Server struct {
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	MaxBodyBytes int64
}

type Metrics struct {
	Port int
}

type Logs struct {
	Level   int
	Encoder EncoderType
}

type EncoderType string

const (
	EncoderTypeJson    EncoderType = "json"
	EncoderTypeConsole EncoderType = "console"
)

// Route binds a bus subscription to a projection kind. Topic is only
// meaningful for service routes, where push payloads don't carry it.
type Route struct {
	Subscription string
	Kind         string
	Topic        string
}

type Store struct {
	Driver         DriverType
	RequestTimeout time.Duration
	Valkey         Valkey
	OpenSearch     OpenSearch
}

type DriverType string

const (
	DriverTypeValkey     DriverType = "valkey"
	DriverTypeOpenSearch DriverType = "opensearch"
)

type Valkey struct {
	URL   string
	Creds ValkeyCreds
}

type ValkeyCreds struct {
	Password string
}

func (c ValkeyCreds) String() string {
	if c.Password != "" {
		return "password set"
	}

	return "no password"
}

type OpenSearch struct {
	Addresses   []string
	Username    string
	IndexPrefix string
	Insecure    bool
	Creds       OpenSearchCreds
}

type OpenSearchCreds struct {
	Password string
}

func (c OpenSearchCreds) String() string {
	if c.Password != "" {
		return "password set"
	}

	return "no password"
}

type S3 struct {
	Bucket       string
	KeyPrefix    string
	BaseEndpoint string
	Region       string
	UsePathStyle bool
	Creds        AWSCreds
}

type AWSCreds struct {
	AccessKeyID     string
	SecretAccessKey string
}

func (c AWSCreds) String() string {
	if c.AccessKeyID != "" && c.SecretAccessKey != "" {
		return "creds set"
	}

	return "no creds"
}
