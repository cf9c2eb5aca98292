package main

import (
	"flag"
	"log"
	"os"
	"reflect"

	"github.com/robotalks/bridge.go/pkg/monitor"
)

var (
	mqttURL  = "mqtt://localhost:1883/"
	bridgeID = "+"
)

func init() {
	if val := os.Getenv("BRIDGE_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.StringVar(&bridgeID, "id", bridgeID, "Bridge ID to watch, + for all.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := monitor.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}

	q.Sub(bridgeID+"/#", monitor.Handler(func(topic string, payload []byte) {
		_, _, kind, err := monitor.ParseTopic(topic)
		if err != nil {
			return
		}
		if kind == monitor.MetaTopic {
			if len(payload) == 0 {
				log.Printf("%s: gone", topic)
				return
			}
			log.Printf("%s: %s", topic, string(payload))
			return
		}
		msg, err := monitor.Decode(topic, payload)
		if err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		log.Printf("%s: [%s] %s", topic,
			reflect.Indirect(reflect.ValueOf(msg)).Type().Name(), msg.String())
	}))
	<-(chan struct{})(nil)
}
