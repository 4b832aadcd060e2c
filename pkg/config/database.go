// Copyright 2020 The Moov Authors
// Use of this source code is governed by an Apache License
// license that can be found in the LICENSE file.

package config

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/moov-io/sepagate/pkg/util"
	"github.com/moov-io/sepagate/x/mask"
)

type Database struct {
	SQLite *SQLite `yaml:"sqlite" json:"sqlite"`
	MySQL  *MySQL  `yaml:"mysql" json:"mysql"`
}

func (cfg Database) Validate() error {
	if cfg.SQLite == nil && cfg.MySQL == nil {
		return errors.New("no database configured")
	}
	if cfg.MySQL != nil && cfg.MySQL.Address == "" {
		return errors.New("mysql: missing address")
	}
	return nil
}

type SQLite struct {
	Path string `yaml:"path" json:"path"`
}

type MySQL struct {
	Address  string `yaml:"address" json:"address"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	Database string `yaml:"database" json:"database"`
}

func (cfg *MySQL) GetPassword() string {
	pass := os.Getenv("MYSQL_PASSWORD")
	if cfg == nil {
		return pass
	}
	return util.Or(pass, cfg.Password)
}

// MarshalJSON masks the password so the config can be served from the admin endpoint.
func (cfg MySQL) MarshalJSON() ([]byte, error) {
	type Aux MySQL
	aux := Aux(cfg)
	if aux.Password != "" {
		aux.Password = mask.Password(aux.Password)
	}
	return json.Marshal(aux)
}
