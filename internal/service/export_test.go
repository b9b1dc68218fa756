package service

import "time"

func SetSleep(d *Dispatcher, fn func(time.Duration)) { d.sleep = fn }

func SetPassIDs(p *CampaignProcessor, fn func() string) { p.newPassID = fn }

func SetNow(p *SchedulePoller, fn func() time.Time) { p.now = fn }
