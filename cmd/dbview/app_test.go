package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hatlonely/dbview/cfg"
	"github.com/hatlonely/dbview/roworder"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
)

const testConfig = `
rowOrder:
  debounce: 10ms
  batchSize: 2
cache:
  enableMetrics: false
view:
  sorts:
    - field: owner
    - field: score
      desc: true
  filters:
    - field: score
      condition: 7
`

func loadOptions(t *testing.T, content string) *Options {
	path := filepath.Join(t.TempDir(), "dbview.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	config, err := cfg.NewConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	defer config.Close()
	var options Options
	if err := config.ConvertTo(&options); err != nil {
		t.Fatal(err)
	}
	return &options
}

func TestApp(t *testing.T) {
	Convey("TestApp", t, func() {
		options := loadOptions(t, testConfig)
		So(options.Wait, ShouldEqual, 500*time.Millisecond)
		So(options.RowOrder.Prefetch, ShouldBeTrue)
		So(options.Cache.Concurrency, ShouldEqual, 8)

		ctx := context.Background()
		app, err := NewAppWithOptions(ctx, options)
		So(err, ShouldBeNil)
		defer app.Close()
		So(app.Start(ctx), ShouldBeNil)

		names := func() []string { return app.Names(app.Rows()) }
		waitFor := func(expected ...string) bool {
			return assert.Eventually(t, func() bool {
				return app.controller.State() != roworder.StateComputing && assert.ObjectsAreEqual(expected, names())
			}, 3*time.Second, 10*time.Millisecond)
		}

		// 按负责人排序，同一负责人按分数倒序，过滤掉没有分数的行
		So(waitFor("review", "deploy", "test", "write plan", "release"), ShouldBeTrue)
		So(app.controller.Loader().Loaded(), ShouldEqual, 3)

		Convey("替换视图条件", func() {
			So(app.ApplyView(&ViewOptions{
				Sorts:   []SortOptions{{Field: "name"}},
				Filters: []FilterOptions{{Field: "done", Condition: 0}},
			}), ShouldBeNil)
			So(waitFor("docs", "write plan"), ShouldBeTrue)

			So(app.ApplyView(&ViewOptions{}), ShouldBeNil)
			So(waitFor("write plan", "review", "deploy", "test", "docs", "release"), ShouldBeTrue)
		})
	})
}

func TestOptionsValidate(t *testing.T) {
	Convey("TestOptionsValidate", t, func() {
		path := filepath.Join(t.TempDir(), "dbview.yaml")
		So(os.WriteFile(path, []byte("view:\n  sorts:\n    - desc: true\n"), 0644), ShouldBeNil)
		config, err := cfg.NewConfig(path)
		So(err, ShouldBeNil)
		defer config.Close()
		var options Options
		So(config.ConvertTo(&options), ShouldNotBeNil)
	})
}
