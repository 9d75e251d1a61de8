// Package version 控制台版本信息
package version

import (
	"runtime"
	"runtime/debug"
	"strings"
)

var (
	// Version 版本号，构建时通过 -ldflags 注入
	Version = "dev"

	// BuildTime 构建时间，通过 -ldflags 注入
	BuildTime = ""

	// GitCommit Git 提交哈希，通过 -ldflags 注入
	GitCommit = ""
)

// Info 版本详情
type Info struct {
	Version   string `json:"version" yaml:"version"`
	BuildTime string `json:"buildTime,omitempty" yaml:"build_time,omitempty"`
	GitCommit string `json:"gitCommit,omitempty" yaml:"git_commit,omitempty"`
	GoVersion string `json:"goVersion" yaml:"go_version"`
}

// Get 返回版本详情，未注入提交哈希时尝试从构建信息读取
func Get() Info {
	info := Info{
		Version:   strings.TrimPrefix(Version, "v"),
		BuildTime: BuildTime,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
	}
	if info.GitCommit == "" {
		if bi, ok := debug.ReadBuildInfo(); ok {
			for _, s := range bi.Settings {
				if s.Key == "vcs.revision" {
					info.GitCommit = s.Value
				}
			}
		}
	}
	return info
}

// String 完整版本描述
func (i Info) String() string {
	s := "v" + i.Version
	if i.BuildTime != "" {
		s += " (built " + i.BuildTime + ")"
	}
	if i.GitCommit != "" {
		s += " commit " + shortCommit(i.GitCommit)
	}
	return s
}

// GetVersion 获取完整版本信息
func GetVersion() string {
	return Get().String()
}

// GetShortVersion 获取简短版本号
func GetShortVersion() string {
	return "v" + strings.TrimPrefix(Version, "v")
}

func shortCommit(c string) string {
	if len(c) > 8 {
		return c[:8]
	}
	return c
}
