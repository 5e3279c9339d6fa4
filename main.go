/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/killallgit/lectra-api/cmd"

// @title           Lectra Transcription API
// @version         1.0.0
// @description     Voice note transcription backend: upload audio, store it, transcribe it and manage the transcript history
// @termsOfService  http://swagger.io/terms/
// @contact.name    API Support
// @contact.url     https://github.com/killallgit/lectra-api
// @license.name    MIT
// @license.url     https://opensource.org/licenses/MIT
// @host            localhost:3000
// @BasePath        /
// @schemes         http https
func main() {
	cmd.Execute()
}
