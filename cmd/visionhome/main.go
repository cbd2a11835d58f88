package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/smartvision/visionhome/config"
	"github.com/smartvision/visionhome/services"
	"github.com/smartvision/visionhome/services/capture"
	"github.com/smartvision/visionhome/services/collector"
	"github.com/smartvision/visionhome/util"
)

func registerServices() {
	// register available services
	services.Register(&capture.Service{Vision: openVision})
	services.Register(&collector.Service{})
}

func usage() {
	fmt.Println("Usage: visionhome [-c config] COMMAND [ARGS]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("   run     service...        Run services (capture, collector)")
	fmt.Println("   trigger [url=] [key=]     Start a capture cycle")
	fmt.Println("   records [url=] [limit=]   List stored detections")
	fmt.Println("   config                    Print the effective configuration")
	fmt.Println()
}

var configPath = flag.String("c", "", "configuration file")

func main() {
	log.SetOutput(os.Stdout)
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() < 1 {
		usage()
		os.Exit(1)
	}

	ps := flag.Args()[1:]
	// ignore anything after '--'
	for i := range ps {
		if ps[i] == "--" {
			ps = ps[0:i]
			break
		}
	}

	services.SetupLogging()
	conf := loadConfig()

	command := flag.Args()[0]
	switch command {
	default:
		usage()
	case "run":
		registerServices()
		if len(ps) == 0 {
			fmt.Println("Services:", strings.Join(services.Registered(), ", "))
			os.Exit(1)
		}
		services.Config = conf
		services.Launch(ps)
	case "trigger":
		args := util.KeywordArgs(ps)
		url := valueOr(args["url"], "http://"+conf.Capture.Addr())
		key := valueOr(args["key"], conf.Capture.Key)
		if err := trigger(url, key); err != nil {
			fmtFatalf("error: %s\n", err)
		}
	case "records":
		args := util.KeywordArgs(ps)
		url := valueOr(args["url"], "http://"+conf.Collector.Addr())
		limit, _ := strconv.Atoi(args["limit"])
		if err := records(os.Stdout, url, limit); err != nil {
			fmtFatalf("error: %s\n", err)
		}
	case "config":
		if err := printConfig(os.Stdout, conf); err != nil {
			fmtFatalf("error: %s\n", err)
		}
	}
}

func loadConfig() *config.Config {
	var conf *config.Config
	var err error
	if *configPath != "" {
		conf, err = config.Load(util.ExpandUser(*configPath))
	} else {
		conf, err = config.Open()
	}
	if err != nil {
		log.Fatalln("Error reading config:", err)
	}
	return conf
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func fmtFatalf(format string, v ...interface{}) {
	fmt.Printf(format, v...)
	os.Exit(1)
}
