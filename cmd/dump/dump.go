package main

import (
	"flag"
	"os"

	"github.com/golang/glog"
	"github.com/kho/easy"
	dict "github.com/syberia-project/platform-packages-inputmethods-LatinIME"
)

func main() {
	graphviz := flag.Bool("graphviz", false, "dump the trie topology instead of the word list")
	var args struct {
		Dict string `name:"dict" usage:"dictionary file"`
	}
	easy.ParseFlagsAndArgs(&args)

	d, err := dict.Open(args.Dict, false)
	if err != nil {
		glog.Fatal("error in opening dictionary: ", err)
	}
	defer d.Close()

	glog.Infof("dictionary %q version %s date %s: %s words",
		d.GetProperty("dictionary", -1), d.GetProperty("version", -1),
		d.GetProperty("date", -1), d.GetProperty("wordcount", -1))

	if *graphviz {
		d.Graphviz(os.Stdout)
		return
	}
	if err := dict.WriteWordList(d, os.Stdout); err != nil {
		glog.Fatal("error in writing word list: ", err)
	}
}
