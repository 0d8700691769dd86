package views

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
	"todoapp/backend"
)

// SortTasks returns a copy of tasks with incomplete tasks first, then by
// title using locale-aware comparison. Blank titles sort first. Equal tasks keep their input order.
func SortTasks(tasks []backend.Task, locale string) []backend.Task {
	sorted := slices.Clone(tasks)
	// Collators are not safe for concurrent use; build one per sort.
	c := collate.New(parseLocale(locale))

	slices.SortStableFunc(sorted, func(a, b backend.Task) int {
		if a.Done != b.Done {
			if a.Done {
				return 1
			}
			return -1
		}
		return c.CompareString(a.Title, b.Title)
	})
	return sorted
}

// parseLocale maps a locale such as "de_DE.UTF-8" to a language tag.
func parseLocale(locale string) language.Tag {
	if locale == "" {
		return language.Make(DefaultLocale)
	}
	for i, r := range locale {
		if r == '.' || r == '@' {
			locale = locale[:i]
			break
		}
	}
	tag, err := language.Parse(locale)
	if err != nil || tag == language.Und {
		return language.Make(DefaultLocale)
	}
	return tag
}
