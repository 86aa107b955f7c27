// Package autoload registers every built-in channel factory via blank
// imports.
package autoload

import (
	_ "scholar/pkg/channels/cli"
	_ "scholar/pkg/channels/telegram"
	_ "scholar/pkg/channels/web"
)
