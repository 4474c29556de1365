package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/envsense/spsd/sps"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

var connTo = flag.String("c", "", "connection string, use socket://[host]:[port] for TCP or [serialDevice] for direct serial connection")
var httpServe = flag.String("s", "", "start http server at [bindtohost][:]port")
var pollEvery = flag.Duration("i", 10*time.Second, "measurement poll interval")
var mqttBroker = flag.String("mqtt", "", "MQTT broker URL, e.g. tcp://localhost:1883 (optional)")
var mqttTopic = flag.String("topic", "spsd/measurement", "MQTT topic for readings")
var verbose = flag.Bool("v", false, "verbose logging")

// To be set via go build -ldflags "-X main.buildVersion=$(git describe --dirty) -X main.buildDate=$(date -u +%FT%TZ)"
var buildVersion = "unspecified"
var buildDate = "unknown"

var sensor *sps.Sensor

var deviceInfo struct {
	ProductName  string `json:"product_name"`
	ArticleCode  string `json:"article_code"`
	SerialNumber string `json:"serial_number"`
}

var latest struct {
	sync.Mutex
	reading *sps.Reading
}

// logrusLogger adapts the sps.Logger key/value interface onto logrus fields.
type logrusLogger struct{}

func (logrusLogger) Debug(msg string, kv ...interface{}) { log.WithFields(fields(kv)).Debug(msg) }
func (logrusLogger) Info(msg string, kv ...interface{})  { log.WithFields(fields(kv)).Info(msg) }
func (logrusLogger) Error(msg string, kv ...interface{}) { log.WithFields(fields(kv)).Error(msg) }

func fields(kv []interface{}) log.Fields {
	f := log.Fields{}
	for i := 0; i+1 < len(kv); i += 2 {
		k, ok := kv[i].(string)
		if !ok {
			k = fmt.Sprintf("%v", kv[i])
		}
		f[k] = kv[i+1]
	}
	return f
}

func getMeasurement(w http.ResponseWriter, r *http.Request) {
	latest.Lock()
	reading := latest.reading
	latest.Unlock()

	if reading == nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("no measurement yet"))
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	e := json.NewEncoder(w)
	e.SetIndent("", "    ")
	e.Encode(reading)
}

func getInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	e := json.NewEncoder(w)
	e.SetIndent("", "    ")
	e.Encode(deviceInfo)
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(http.StatusOK)
	v := struct {
		Version   string `json:"version"`
		BuildDate string `json:"build_date"`
	}{Version: buildVersion, BuildDate: buildDate}
	j, _ := json.Marshal(v)
	w.Write(j)
}

func postFanCleaning(w http.ResponseWriter, r *http.Request) {
	if err := sensor.StartFanCleaning(); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
		w.Write([]byte(err.Error()))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("\"OK\"\n"))
}

func main() {
	flag.Parse()

	if *verbose {
		log.SetLevel(log.DebugLevel)
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp: true,
		})
	}

	if *connTo == "" {
		log.Fatal("Need connection string in -c option")
	}

	dev := sps.NewDevice()
	if err := dev.Connect(*connTo); err != nil {
		log.Fatalf("Connect to %v failed: %v", *connTo, err)
	}
	defer dev.Close()

	sensor = sps.New(dev, sps.WithLogger(logrusLogger{}))

	// A reset before the first start guarantees a known sensor state even if
	// a previous run died mid-measurement.
	if err := sensor.Reset(); err != nil {
		log.Fatalf("Reset failed: %v", err)
	}
	time.Sleep(100 * time.Millisecond)

	for kind, dst := range map[sps.InfoKind]*string{
		sps.InfoProductName:  &deviceInfo.ProductName,
		sps.InfoArticleCode:  &deviceInfo.ArticleCode,
		sps.InfoSerialNumber: &deviceInfo.SerialNumber,
	} {
		v, err := sensor.DeviceInformation(kind)
		if err != nil {
			log.Warnf("Device information 0x%02X: %v", byte(kind), err)
			continue
		}
		*dst = v
	}
	log.Infof("Connected to %v (%v, serial %v)", deviceInfo.ProductName, deviceInfo.ArticleCode, deviceInfo.SerialNumber)

	if err := sensor.StartMeasurement(); err != nil {
		log.Fatalf("Start measurement failed: %v", err)
	}

	var mqttClient mqtt.Client
	if *mqttBroker != "" {
		opts := mqtt.NewClientOptions().AddBroker(*mqttBroker).SetClientID("spsd")
		mqttClient = mqtt.NewClient(opts)
		if token := mqttClient.Connect(); token.Wait() && token.Error() != nil {
			log.Fatalf("MQTT connect failed: %v", token.Error())
		}
		defer mqttClient.Disconnect(250)
	}

	if *httpServe != "" {
		router := mux.NewRouter()
		router.HandleFunc("/measurement", getMeasurement).Methods("GET")
		router.HandleFunc("/info", getInfo).Methods("GET")
		router.HandleFunc("/version", versionInfo).Methods("GET")
		router.HandleFunc("/fan-cleaning", postFanCleaning).Methods("POST")

		// accept :[portnum] as well as [portnum]
		if i, err := strconv.Atoi(*httpServe); err == nil {
			*httpServe = fmt.Sprintf(":%d", i)
		}
		h := &http.Server{Addr: *httpServe, Handler: router}
		go func() { log.Error(h.ListenAndServe()) }()
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done,
		syscall.SIGHUP,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT)

	ticker := time.NewTicker(*pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			reading, err := sensor.ReadMeasurement()
			if err != nil {
				if sps.IsDeviceError(err) {
					// No fresh data yet is normal right after start; the
					// sensor rejects the read rather than blocking.
					log.Debugf("Read measurement: %v", err)
				} else {
					log.Errorf("Read measurement: %v", err)
				}
				continue
			}
			latest.Lock()
			latest.reading = reading
			latest.Unlock()

			log.Debugf("Reading: pm1=%v pm2.5=%v pm4=%v pm10=%v tps=%v",
				reading.PM1, reading.PM25, reading.PM4, reading.PM10, reading.TPS)

			if mqttClient != nil {
				j, _ := json.Marshal(reading)
				mqttClient.Publish(*mqttTopic, 0, true, j)
			}
		case sig := <-done:
			log.Infof("Received %v, stopping measurement", sig)
			if err := sensor.StopMeasurement(); err != nil {
				log.Errorf("Stop measurement: %v", err)
			}
			return
		}
	}
}
