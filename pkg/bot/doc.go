// Package bot exposes the unfollow command as a Discord slash command.
//
// Every answer is ephemeral. Refused invocations (missing credentials,
// cooldown, a run already in progress) get an immediate embed. Accepted runs
// are deferred, acknowledged with a processing message and finally edited
// with the result or the error.
package bot
