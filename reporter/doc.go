// Package reporter periodically writes pipeline statistics to the status
// logger on a cron schedule.
//
// Schedules use the standard five-field cron syntax or the robfig
// descriptors:
//
//	"@every 1m"     every minute
//	"*/5 * * * *"   every five minutes
//	"0 * * * *"     hourly
package reporter
