package main

import (
	"flag"

	"github.com/golang/glog"
	"github.com/kho/easy"
	dict "github.com/syberia-project/platform-packages-inputmethods-LatinIME"
)

func main() {
	version := dict.VERSION_4
	flag.Var(&version, "dict.format", "format version of the output dictionary")
	var args struct {
		In  string `name:"in" usage:"input word list"`
		Out string `name:"out" usage:"output dictionary file"`
	}
	easy.ParseFlagsAndArgs(&args)

	in, err := easy.Open(args.In)
	if err != nil {
		glog.Fatal("error in opening word list: ", err)
	}
	defer in.Close()

	d, err := dict.FromWordList(in, version, "")
	if err != nil {
		glog.Fatal("error in reading word list: ", err)
	}
	if err := d.FlushWithGC(args.Out); err != nil {
		glog.Fatal("error in writing dictionary: ", err)
	}
	glog.Infof("wrote %s words to %s", d.GetProperty("wordcount", -1), args.Out)
}
