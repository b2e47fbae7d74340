// Package commands defines the creditofacil CLI.
//
// Commands
//
//   - wizard     Run the loan wizard (default when no command is given)
//   - history    Print a customer's loans from the backend
//   - simulate   Quote installments for an amount, term and rate
//   - journal    List, export or purge the local journal of wizard runs
//   - config     Print the config path or write the current settings
//
// # Implementation
//
// The root command loads configuration and builds the logger and API client
// before any subcommand runs. The journal database is opened only by the
// commands that touch it.
package commands
