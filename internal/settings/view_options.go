package settings

import "net/url"

// ViewOptions 配置视图参数，可由链接参数给出
//
//	f=<query>  预置搜索词
//	e=1        自动展开搜索结果
//	a=1        显示高级配置项
type ViewOptions struct {
	Search     string
	AutoExpand bool
	Advanced   bool
}

// ParseViewOptions 解析链接参数
func ParseViewOptions(query url.Values) ViewOptions {
	return ViewOptions{
		Search:     query.Get("f"),
		AutoExpand: query.Get("e") == "1",
		Advanced:   query.Get("a") == "1",
	}
}

// ExpandMatches 有搜索词且要求自动展开时，视图应展开所有匹配项
func (o ViewOptions) ExpandMatches() bool {
	return o.AutoExpand && o.Search != ""
}

// Encode 编码为链接参数
func (o ViewOptions) Encode() string {
	q := url.Values{}
	if o.Search != "" {
		q.Set("f", o.Search)
	}
	if o.AutoExpand {
		q.Set("e", "1")
	}
	if o.Advanced {
		q.Set("a", "1")
	}
	return q.Encode()
}
