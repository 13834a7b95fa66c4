// dbview 加载示例任务库，按配置文件中的排序和过滤条件输出视图的行顺序
//
//	dbview -c dbview.yaml          输出一次结果后退出
//	dbview -c dbview.yaml -watch   监听配置文件，视图条件变化时重新计算
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hatlonely/dbview/cfg"
	"github.com/hatlonely/dbview/log"
	"github.com/pkg/errors"
)

func main() {
	configPath := flag.String("c", "dbview.yaml", "config file, yaml/json/toml/ini")
	watch := flag.Bool("watch", false, "watch the config file and recompute on view changes")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *watch); err != nil {
		log.Default().Error("dbview failed", "error", fmt.Sprintf("%+v", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, path string, watch bool) error {
	config, err := cfg.NewConfig(path)
	if err != nil {
		return errors.WithMessage(err, "cfg.NewConfig failed")
	}
	defer config.Close()

	var options Options
	if err := config.ConvertTo(&options); err != nil {
		return err
	}
	app, err := NewAppWithOptions(ctx, &options)
	if err != nil {
		return err
	}
	defer app.Close()
	if err := app.Start(ctx); err != nil {
		return errors.WithMessage(err, "app.Start failed")
	}

	if !watch {
		select {
		case <-time.After(options.Wait):
		case <-ctx.Done():
		}
		fmt.Println(strings.Join(app.Names(app.Rows()), "\n"))
		return nil
	}

	config.OnKeyChange("view", func(c *cfg.Config) error {
		var view ViewOptions
		if err := c.ConvertTo(&view); err != nil {
			return err
		}
		return app.ApplyView(&view)
	})
	if err := config.Watch(); err != nil {
		return errors.WithMessage(err, "config.Watch failed")
	}
	<-ctx.Done()
	return nil
}
