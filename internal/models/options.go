package models

// Options for the CLI. Zero values fall back to the environment
// (HOST, PORT, LOG_LEVEL).
type Options struct {
  Debug   bool   `doc:"Enable debug logging" short:"d" default:"false"`
  Host    string `doc:"Hostname to listen on, overrides HOST" default:""`
  Port    int    `doc:"Port to listen on, overrides PORT" short:"p" default:"0"`
  EnvFile string `doc:"Optional dotenv file read before the environment" default:".env"`
}
