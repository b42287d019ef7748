package banner

import (
	"surgesim/internal/tui/styles"

	"github.com/charmbracelet/lipgloss"
)

func GetString() string {
	renderer := lipgloss.DefaultRenderer()

	style := renderer.NewStyle().
		Foreground(styles.ColorPrimary).
		Bold(true)

	ascii := `
   _____                       _____ _
  / ___/__  ________ ____     / ___/(_)___ ___
  \__ \/ / / / ___/ __ '/ _ \ \__ \/ / __ '__ \
 ___/ / /_/ / /  / /_/ /  __/___/ / / / / / / /
/____/\__,_/_/   \__, /\___//____/_/_/ /_/ /_/
                /____/                         `

	return "\n" + style.Render(ascii) + "\n"
}
