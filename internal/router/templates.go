package router

import (
	"fmt"
	"html/template"
	"path/filepath"
	"strings"
	"time"

	"elim/internal/utils"

	"github.com/gin-contrib/multitemplate"
)

var funcMap = template.FuncMap{
	"dict": func(values ...interface{}) (map[string]interface{}, error) {
		if len(values)%2 != 0 {
			return nil, fmt.Errorf("invalid dict call")
		}
		dict := make(map[string]interface{}, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				return nil, fmt.Errorf("dict keys must be strings")
			}
			dict[key] = values[i+1]
		}
		return dict, nil
	},
	"add": func(a, b int) int {
		return a + b
	},
	// indent caps visual nesting so deep reply chains stay readable on phones
	"indent": func(depth int) int {
		if depth > 6 {
			depth = 6
		}
		return depth * 16
	},
	"timeAgo":  timeAgo,
	"markdown": utils.RenderComment,
	"initials": utils.Initials,
	"level":    utils.ProfileLevel,
	"deref": func(s *string) string {
		if s == nil {
			return ""
		}
		return *s
	},
}

func timeAgo(t time.Time) string {
	seconds := int(time.Since(t).Seconds())
	switch {
	case seconds < 60:
		return "just now"
	case seconds < 3600:
		return plural(seconds/60, "minute")
	case seconds < 86400:
		return plural(seconds/3600, "hour")
	case seconds < 2592000:
		return plural(seconds/86400, "day")
	case seconds < 31536000:
		return plural(seconds/2592000, "month")
	}
	return plural(seconds/31536000, "year")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit + " ago"
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// LoadTemplates builds one template set per view: every layout and component
// plus the view itself, registered under the view's path below views/.
func LoadTemplates(templatesDir string) (multitemplate.Renderer, error) {
	r := multitemplate.NewRenderer()

	layouts, err := filepath.Glob(filepath.Join(templatesDir, "layouts", "*.html"))
	if err != nil {
		return nil, err
	}
	components, err := filepath.Glob(filepath.Join(templatesDir, "components", "*.html"))
	if err != nil {
		return nil, err
	}
	views, err := filepath.Glob(filepath.Join(templatesDir, "views", "*", "*.html"))
	if err != nil {
		return nil, err
	}
	topLevel, err := filepath.Glob(filepath.Join(templatesDir, "views", "*.html"))
	if err != nil {
		return nil, err
	}
	views = append(views, topLevel...)
	if len(views) == 0 {
		return nil, fmt.Errorf("no templates found in %s", templatesDir)
	}

	viewsDir := filepath.Join(templatesDir, "views")
	for _, view := range views {
		name, err := filepath.Rel(viewsDir, view)
		if err != nil {
			return nil, err
		}
		files := make([]string, 0, len(layouts)+len(components)+1)
		files = append(files, layouts...)
		files = append(files, components...)
		files = append(files, view)
		r.AddFromFilesFuncs(strings.ReplaceAll(name, string(filepath.Separator), "/"), funcMap, files...)
	}
	return r, nil
}
