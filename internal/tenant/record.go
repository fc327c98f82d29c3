// Package tenant holds the domain types shared by the control directory, the
// pool registry and the HTTP edge.
package tenant

import "fmt"

// Record is one tenant's row in the control store: identity plus the
// coordinates of its dedicated database. DBPasswordEnc is ciphertext; only
// the pool opener decrypts it, and it never appears in logs or responses.
type Record struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	Name          string `json:"name"`
	DBHost        string `json:"db_host"`
	DBPort        int    `json:"db_port"`
	DBName        string `json:"db_name"`
	DBUser        string `json:"db_user"`
	DBPasswordEnc string `json:"db_password_enc"`
}

// Target is the credential-free description of where a tenant's data lives.
// Safe to log and to surface on diagnostic headers.
type Target struct {
	Code   string `json:"code"`
	Host   string `json:"host"`
	Port   int    `json:"port"`
	DBName string `json:"db_name"`
}

// Target projects the record's connection coordinates.
func (r *Record) Target() Target {
	return Target{Code: r.Code, Host: r.DBHost, Port: r.DBPort, DBName: r.DBName}
}

func (t Target) String() string {
	return fmt.Sprintf("%s@%s:%d/%s", t.Code, t.Host, t.Port, t.DBName)
}
