// Command token mints an operator JWT for the protected API routes.
package main

import (
	"flag"
	"fmt"
	"os"

	"ngx_pipeline/internal/app/di"
	jwtmw "ngx_pipeline/internal/platform/jwt"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	operator := flag.String("operator", "", "operator name stored in the token subject")
	flag.Parse()

	if *operator == "" {
		fmt.Fprintln(os.Stderr, "-operator is required")
		os.Exit(2)
	}

	cfg, _, err := di.Bootstrap(di.ConfigPath(*configPath))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	token, err := jwtmw.NewGenerator(cfg.Server.JWTSecret, cfg.Server.TokenTTL).GenerateToken(*operator)
	if err != nil {
		fmt.Fprintln(os.Stderr, "generate token:", err)
		os.Exit(1)
	}
	fmt.Println(token)
}
