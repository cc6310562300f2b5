package metadata

// MenuItem is one entry of the admin navigation.
type MenuItem struct {
	Key      string     `json:"key"`
	Label    string     `json:"label"`
	Icon     string     `json:"icon,omitempty"`
	Path     string     `json:"path,omitempty"`
	Children []MenuItem `json:"children,omitempty"`
}

// menuLayout is the navigation order. Keys name entity routes, except the
// dashboard and grouping nodes.
var menuLayout = []MenuItem{
	{Key: "dashboard", Label: "Dashboard", Icon: "dashboard", Path: "/dashboard"},
	{Key: "users", Label: "Users", Icon: "user"},
	{Key: "posts", Label: "Posts", Icon: "file-text"},
	{Key: "comments", Label: "Comments", Icon: "message"},
	{Key: "tags", Label: "Tags", Icon: "tag"},
	{Key: "notifications", Label: "Notifications", Icon: "bell"},
	{Key: "surveys", Label: "Surveys", Icon: "form", Children: []MenuItem{
		{Key: "survey-questions", Label: "Survey questions"},
		{Key: "survey-responses", Label: "Survey responses"},
	}},
	{Key: "admins", Label: "Admins", Icon: "lock"},
}

// Menu returns the navigation filtered to registered routes. Groups without
// any registered child are dropped. Paths are prefixed with base.
func (r *Registry) Menu(base string) []MenuItem {
	return r.filterMenu(menuLayout, base)
}

func (r *Registry) filterMenu(items []MenuItem, base string) []MenuItem {
	out := make([]MenuItem, 0, len(items))
	for _, it := range items {
		switch {
		case len(it.Children) > 0:
			it.Children = r.filterMenu(it.Children, base)
			if len(it.Children) == 0 {
				continue
			}
		case it.Path != "":
		default:
			if _, ok := r.ByRoute(it.Key); !ok {
				continue
			}
			it.Path = base + "/" + it.Key
		}
		out = append(out, it)
	}
	return out
}
