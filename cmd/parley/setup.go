// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"

	"github.com/kadirpekel/parley/pkg/config"
	"github.com/kadirpekel/parley/pkg/store"
)

// SetupCmd creates the employee table and optionally imports records.
type SetupCmd struct {
	CSV string `help:"CSV file of employee records to import." type:"path"`
}

func (c *SetupCmd) Run(cli *CLI) error {
	cfg, err := config.Load(cli.Config)
	if err != nil {
		return err
	}

	ctx := context.Background()
	s, err := store.NewMySQLStore(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.CreateSchema(ctx); err != nil {
		return err
	}
	fmt.Println("Employee schema ready")

	if c.CSV != "" {
		count, err := s.ImportCSV(ctx, c.CSV)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d employee records from %s\n", count, c.CSV)
	}
	return nil
}
