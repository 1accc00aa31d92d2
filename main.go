package main

import (
	_ "github.com/joho/godotenv/autoload" // Autoload .env file.

	"github.com/campus-portal/event-portal-api/cmd/app"
)

// @title           College Event Portal API
// @version         1.0
// @description     Events, registrations and accounts for the college event portal.
// @termsOfService  http://swagger.io/terms/
//
// @contact.name   API Support
//
// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html
//
// @BasePath  /api
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token
func main() {
	if err := app.Start(); err != nil {
		panic(err)
	}
}
