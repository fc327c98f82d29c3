package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// The control-store descriptor is a semicolon-delimited key=value string,
// e.g.
//
//	Server=db.internal;Port=5432;Database=staffdeck_control;User Id=staffdeck;Password=s3cret;TrustServerCertificate=true
//
// Keys are case-insensitive and tolerate the usual aliases (Host/Server,
// User Id/User/Uid, Database/DbName).

// ErrControlDBUnset means CONTROL_DB_URL is absent from the environment.
var ErrControlDBUnset = errors.New("config: " + ControlDBEnvVar + " not set")

// ControlDSN is the parsed control-store connection descriptor.
type ControlDSN struct {
	Host      string
	Port      int
	Database  string
	User      string
	Password  string
	TrustCert bool
}

// ControlDSNFromEnv reads and parses CONTROL_DB_URL.
func ControlDSNFromEnv() (*ControlDSN, error) {
	raw := strings.TrimSpace(os.Getenv(ControlDBEnvVar))
	if raw == "" {
		return nil, ErrControlDBUnset
	}
	return ParseControlDSN(raw)
}

// ParseControlDSN parses the semicolon-delimited descriptor.
func ParseControlDSN(raw string) (*ControlDSN, error) {
	d := &ControlDSN{Port: 5432}

	for _, item := range strings.Split(raw, ";") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		i := strings.IndexRune(item, '=')
		if i <= 0 {
			return nil, fmt.Errorf("config: bad descriptor segment %q", item)
		}
		key := strings.ToLower(strings.TrimSpace(item[:i]))
		val := strings.TrimSpace(item[i+1:])

		switch key {
		case "server", "host":
			d.Host = val
		case "port":
			p, err := strconv.Atoi(val)
			if err != nil || p <= 0 || p > 65535 {
				return nil, fmt.Errorf("config: bad port %q", val)
			}
			d.Port = p
		case "database", "dbname":
			d.Database = val
		case "user id", "user", "uid":
			d.User = val
		case "password", "pwd":
			d.Password = val
		case "trustservercertificate", "trust server certificate":
			b, err := strconv.ParseBool(val)
			if err != nil {
				return nil, fmt.Errorf("config: bad trust flag %q", val)
			}
			d.TrustCert = b
		default:
			// Unknown keys are ignored so ops can carry driver-specific
			// extras without breaking the parser.
		}
	}

	if d.Host == "" {
		return nil, errors.New("config: descriptor missing server")
	}
	if d.Database == "" {
		return nil, errors.New("config: descriptor missing database")
	}
	if d.User == "" {
		return nil, errors.New("config: descriptor missing user id")
	}
	return d, nil
}

// DSN renders the pgx keyword/value connection string.
func (d *ControlDSN) DSN() string {
	sslmode := "verify-full"
	if d.TrustCert {
		sslmode = "require"
	}
	parts := []string{
		"host=" + d.Host,
		"port=" + strconv.Itoa(d.Port),
		"dbname=" + d.Database,
		"user=" + d.User,
		"sslmode=" + sslmode,
	}
	if d.Password != "" {
		parts = append(parts, "password="+d.Password)
	}
	return strings.Join(parts, " ")
}

// Redacted is the loggable form of the descriptor.
func (d *ControlDSN) Redacted() string {
	return fmt.Sprintf("%s@%s:%d/%s", d.User, d.Host, d.Port, d.Database)
}
