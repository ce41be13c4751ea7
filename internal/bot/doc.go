// Package bot implements the Telegram command surface: subscription
// management, threshold and topic preferences, recent and top whale
// listings, and a health summary.
//
// The bot runs long polling in its own goroutine, fully decoupled from
// the ingestion loop. It only reads and writes subscriber preferences
// and read-only trade queries; alert delivery itself lives in the
// dispatcher.
package bot
